// Package client is the relay's HTTP API consumer used by cmd/client.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"pgprelay/internal/model"

	"github.com/gorilla/websocket"
)

type (
	Client struct {
		host string
	}

	envelope struct {
		Meta model.Meta      `json:"meta"`
		Data json.RawMessage `json:"data"`
	}
)

func New(host string) *Client {
	return &Client{host: host}
}

func (c *Client) post(path string, body any, out any) error {
	u := url.URL{
		Scheme: "http",
		Host:   c.host,
		Path:   path,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := http.Post(u.String(), "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}

	defer resp.Body.Close()
	defer io.Copy(io.Discard, resp.Body)

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}

	if env.Meta.Error != nil {
		return fmt.Errorf("relay %d (%s): %s", env.Meta.Code, env.Meta.Error.Type, env.Meta.Error.Message)
	}

	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// Enter registers the username and returns the sealed signup challenge.
func (c *Client) Enter(username, armoredKey string) (string, error) {
	var data struct {
		PGPChallenge string `json:"pgpChallenge"`
	}
	err := c.post("/enter", map[string]string{"username": username, "key": armoredKey}, &data)
	return data.PGPChallenge, err
}

func (c *Client) Verify(decryptedHash string) error {
	return c.post("/verify", map[string]string{"decryptedHash": decryptedHash}, nil)
}

func (c *Client) Key(username string) (string, error) {
	var data struct {
		Key string `json:"key"`
	}
	err := c.post("/key", map[string]string{"username": username}, &data)
	return data.Key, err
}

// Send queues a message and returns the sealed confirmation token.
func (c *Client) Send(sender, receiver, message string) (string, error) {
	var data struct {
		PGPHash string `json:"pgpHash"`
	}
	err := c.post("/send", map[string]string{
		"sender":   sender,
		"receiver": receiver,
		"message":  message,
	}, &data)
	return data.PGPHash, err
}

func (c *Client) ConfirmSend(decryptedHash string) error {
	return c.post("/confirm", map[string]string{"decryptedHash": decryptedHash}, nil)
}

func (c *Client) Retrieve(username string) ([]model.Delivery, error) {
	var data struct {
		Messages []model.Delivery `json:"messages"`
	}
	err := c.post("/retrieve", map[string]string{"username": username}, &data)
	return data.Messages, err
}

func (c *Client) Delete(decryptedHashes []string) (int, error) {
	var data struct {
		Collected int `json:"collected"`
	}
	err := c.post("/delete", map[string]any{"decryptedHashes": decryptedHashes}, &data)
	return data.Collected, err
}

// Watch opens the notification websocket for the username.
func (c *Client) Watch(username string) (*websocket.Conn, error) {
	params := url.Values{
		"username": []string{username},
	}

	u := url.URL{
		Scheme:   "ws",
		Host:     c.host,
		Path:     "/watch",
		RawQuery: params.Encode(),
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}

	return conn, nil
}
