package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pgprelay/internal/protocol/relay"
	"pgprelay/internal/repository/memory"
	"pgprelay/internal/service/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct{}

func (stubEngine) Encrypt(_ context.Context, _ string, plaintext string) (string, error) {
	return "sealed:" + plaintext, nil
}

type envelope struct {
	Meta struct {
		Code  int `json:"code"`
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"meta"`
	Data json.RawMessage `json:"data"`
}

func newTestServer() *httptest.Server {
	svc := relay.NewService(memory.NewUserRepo(), memory.NewMessageRepo(), stubEngine{}, 0)
	return httptest.NewServer(server.NewHttpServer(svc, nil).Router())
}

func post(t *testing.T, ts *httptest.Server, path string, body any) envelope {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, resp.StatusCode, env.Meta.Code, "status and meta.code disagree")
	return env
}

func unseal(t *testing.T, ciphertext string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(ciphertext, "sealed:"))
	return strings.TrimPrefix(ciphertext, "sealed:")
}

func TestSend_MissingReceiver(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	env := post(t, ts, "/send", map[string]string{"sender": "alice", "message": "hi"})
	assert.Equal(t, 400, env.Meta.Code)
	require.NotNil(t, env.Meta.Error)
	assert.Equal(t, "Query", env.Meta.Error.Type)
	assert.Equal(t, "Missing field: 'receiver'", env.Meta.Error.Message)
}

func TestSend_MissingReceiverAndMessage(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	env := post(t, ts, "/send", map[string]string{"sender": "alice"})
	require.NotNil(t, env.Meta.Error)
	assert.Equal(t, "Missing fields: 'receiver' and 'message'", env.Meta.Error.Message)
}

func TestKey_MissingUsernameIs422(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	env := post(t, ts, "/key", map[string]string{})
	assert.Equal(t, 422, env.Meta.Code)
	require.NotNil(t, env.Meta.Error)
	assert.Equal(t, "Missing field: 'username'", env.Meta.Error.Message)
}

func TestSend_UnknownSenderNamed(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	env := post(t, ts, "/enter", map[string]string{"username": "bob", "key": "bob-key"})
	require.Equal(t, 200, env.Meta.Code)

	env = post(t, ts, "/send", map[string]string{"sender": "ghost", "receiver": "bob", "message": "x"})
	assert.Equal(t, 404, env.Meta.Code)
	require.NotNil(t, env.Meta.Error)
	assert.Equal(t, "Database", env.Meta.Error.Type)
	assert.Contains(t, env.Meta.Error.Message, "'ghost'")
	assert.NotContains(t, env.Meta.Error.Message, "'bob'")
}

func TestEnter_DuplicateUsername(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	env := post(t, ts, "/enter", map[string]string{"username": "alice", "key": "k"})
	require.Equal(t, 200, env.Meta.Code)

	env = post(t, ts, "/enter", map[string]string{"username": "alice", "key": "k"})
	assert.Equal(t, 409, env.Meta.Code)
	require.NotNil(t, env.Meta.Error)
	assert.Equal(t, "Username in use", env.Meta.Error.Message)
}

func TestVerify_NoMatch(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	env := post(t, ts, "/verify", map[string]string{"decryptedHash": "nope"})
	assert.Equal(t, 404, env.Meta.Code)
}

func TestDelete_MissingHashes(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	env := post(t, ts, "/delete", map[string]any{})
	assert.Equal(t, 400, env.Meta.Code)
	require.NotNil(t, env.Meta.Error)
	assert.Contains(t, env.Meta.Error.Message, "'decryptedHashes'")
}

func TestFullFlowOverHTTP(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	// Register both parties and resolve their signup challenges.
	for _, name := range []string{"alice", "bob"} {
		env := post(t, ts, "/enter", map[string]string{"username": name, "key": name + "-key"})
		require.Equal(t, 200, env.Meta.Code)

		var data struct {
			PGPChallenge string `json:"pgpChallenge"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))

		env = post(t, ts, "/verify", map[string]string{"decryptedHash": unseal(t, data.PGPChallenge)})
		require.Equal(t, 200, env.Meta.Code)
	}

	env := post(t, ts, "/key", map[string]string{"username": "bob"})
	require.Equal(t, 200, env.Meta.Code)
	var keyData struct {
		Username string `json:"username"`
		Key      string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &keyData))
	assert.Equal(t, "bob-key", keyData.Key)

	env = post(t, ts, "/send", map[string]string{"sender": "alice", "receiver": "bob", "message": "hi"})
	require.Equal(t, 200, env.Meta.Code)
	var sendData struct {
		PGPHash string `json:"pgpHash"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sendData))

	// Not deliverable until confirmed.
	env = post(t, ts, "/retrieve", map[string]string{"username": "bob"})
	require.Equal(t, 200, env.Meta.Code)
	var retrieveData struct {
		Messages []struct {
			Sender  string `json:"sender"`
			Message string `json:"message"`
			PGPHash string `json:"pgpHash"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &retrieveData))
	assert.Empty(t, retrieveData.Messages)

	env = post(t, ts, "/confirm", map[string]string{"decryptedHash": unseal(t, sendData.PGPHash)})
	require.Equal(t, 200, env.Meta.Code)

	env = post(t, ts, "/retrieve", map[string]string{"username": "bob"})
	require.Equal(t, 200, env.Meta.Code)
	require.NoError(t, json.Unmarshal(env.Data, &retrieveData))
	require.Len(t, retrieveData.Messages, 1)
	assert.Equal(t, "alice", retrieveData.Messages[0].Sender)
	assert.Equal(t, "hi", retrieveData.Messages[0].Message)

	env = post(t, ts, "/delete", map[string]any{
		"decryptedHashes": []string{unseal(t, retrieveData.Messages[0].PGPHash)},
	})
	require.Equal(t, 200, env.Meta.Code)
	var deleteData struct {
		Collected int `json:"collected"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &deleteData))
	assert.Equal(t, 1, deleteData.Collected)

	env = post(t, ts, "/retrieve", map[string]string{"username": "bob"})
	require.Equal(t, 200, env.Meta.Code)
	require.NoError(t, json.Unmarshal(env.Data, &retrieveData))
	assert.Empty(t, retrieveData.Messages)
}
