package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"pgprelay/internal/model"
	"pgprelay/internal/protocol/relay"
	"pgprelay/internal/utils/log"
	"pgprelay/pkg/errors"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type (
	HttpServer struct {
		relayService *relay.Service
		notifier     Notifier
	}
)

// NewHttpServer wires the façade. notifier may be nil; the relay then runs
// without deliverable notifications and /watch is unavailable.
func NewHttpServer(relayService *relay.Service, notifier Notifier) *HttpServer {
	return &HttpServer{
		relayService: relayService,
		notifier:     notifier,
	}
}

func (s *HttpServer) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/enter", s.HandleEnter()).Methods(http.MethodPost)
	r.HandleFunc("/verify", s.HandleVerify()).Methods(http.MethodPost)
	r.HandleFunc("/key", s.HandleKey()).Methods(http.MethodPost)
	r.HandleFunc("/send", s.HandleSend()).Methods(http.MethodPost)
	r.HandleFunc("/confirm", s.HandleConfirmSend()).Methods(http.MethodPost)
	r.HandleFunc("/retrieve", s.HandleRetrieve()).Methods(http.MethodPost)
	r.HandleFunc("/delete", s.HandleDelete()).Methods(http.MethodPost)
	r.HandleFunc("/watch", s.HandleWatch()).Methods(http.MethodGet)

	return r
}

func (s *HttpServer) Run(addr string) error {
	log.Info("relay listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.Router())
}

func (s *HttpServer) HandleEnter() http.HandlerFunc {
	type request struct {
		Username string `json:"username"`
		Key      string `json:"key"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		rid := uuid.NewString()

		var req request
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := requireFields(errors.CodeInvalidArgument,
			field{"username", req.Username},
			field{"key", req.Key},
		); err != nil {
			writeError(w, err)
			return
		}

		sealed, err := s.relayService.Enter(r.Context(), req.Username, req.Key)
		if err != nil {
			log.Warn("enter failed", zap.String("rid", rid), zap.String("username", req.Username), zap.Error(err))
			writeError(w, err)
			return
		}

		log.Info("user entered", zap.String("rid", rid), zap.String("username", req.Username))
		writeEnvelope(w, http.StatusOK, map[string]string{"pgpChallenge": sealed})
	}
}

func (s *HttpServer) HandleVerify() http.HandlerFunc {
	type request struct {
		DecryptedHash string `json:"decryptedHash"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		rid := uuid.NewString()

		var req request
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := requireFields(errors.CodeInvalidArgument,
			field{"decryptedHash", req.DecryptedHash},
		); err != nil {
			writeError(w, err)
			return
		}

		u, err := s.relayService.Verify(r.Context(), req.DecryptedHash)
		if err != nil {
			writeError(w, err)
			return
		}

		log.Info("challenge verified", zap.String("rid", rid), zap.String("username", u.Username))
		writeEnvelope(w, http.StatusOK, struct{}{})
	}
}

func (s *HttpServer) HandleKey() http.HandlerFunc {
	type request struct {
		Username string `json:"username"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		// Historical quirk kept for wire compat: this endpoint alone
		// reports a missing field as 422.
		if err := requireFields(errors.CodeUnprocessable,
			field{"username", req.Username},
		); err != nil {
			writeError(w, err)
			return
		}

		u, err := s.relayService.Key(r.Context(), req.Username)
		if err != nil {
			writeError(w, err)
			return
		}

		writeEnvelope(w, http.StatusOK, map[string]string{
			"username": u.Username,
			"key":      u.Key,
		})
	}
}

func (s *HttpServer) HandleSend() http.HandlerFunc {
	type request struct {
		Sender   string `json:"sender"`
		Receiver string `json:"receiver"`
		Message  string `json:"message"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		rid := uuid.NewString()

		var req request
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := requireFields(errors.CodeInvalidArgument,
			field{"sender", req.Sender},
			field{"receiver", req.Receiver},
			field{"message", req.Message},
		); err != nil {
			writeError(w, err)
			return
		}

		sealed, err := s.relayService.Send(r.Context(), req.Sender, req.Receiver, req.Message)
		if err != nil {
			log.Warn("send failed", zap.String("rid", rid), zap.String("sender", req.Sender), zap.Error(err))
			writeError(w, err)
			return
		}

		log.Info("message queued", zap.String("rid", rid),
			zap.String("sender", req.Sender), zap.String("receiver", req.Receiver))
		writeEnvelope(w, http.StatusOK, map[string]string{"pgpHash": sealed})
	}
}

func (s *HttpServer) HandleConfirmSend() http.HandlerFunc {
	type request struct {
		DecryptedHash string `json:"decryptedHash"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		rid := uuid.NewString()

		var req request
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := requireFields(errors.CodeInvalidArgument,
			field{"decryptedHash", req.DecryptedHash},
		); err != nil {
			writeError(w, err)
			return
		}

		msg, err := s.relayService.ConfirmSend(r.Context(), req.DecryptedHash)
		if err != nil {
			writeError(w, err)
			return
		}

		if s.notifier != nil {
			n := &model.Notification{Sender: msg.Sender}
			if err := s.notifier.Push(r.Context(), msg.Receiver, n); err != nil {
				log.Error("push notification failed", zap.String("rid", rid), zap.Error(err))
			}
		}

		log.Info("message deliverable", zap.String("rid", rid),
			zap.String("sender", msg.Sender), zap.String("receiver", msg.Receiver))
		writeEnvelope(w, http.StatusOK, struct{}{})
	}
}

func (s *HttpServer) HandleRetrieve() http.HandlerFunc {
	type request struct {
		Username string `json:"username"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		rid := uuid.NewString()

		var req request
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := requireFields(errors.CodeInvalidArgument,
			field{"username", req.Username},
		); err != nil {
			writeError(w, err)
			return
		}

		deliveries, err := s.relayService.Retrieve(r.Context(), req.Username)
		if err != nil {
			log.Warn("retrieve failed", zap.String("rid", rid), zap.String("username", req.Username), zap.Error(err))
			writeError(w, err)
			return
		}
		if deliveries == nil {
			deliveries = []model.Delivery{}
		}

		writeEnvelope(w, http.StatusOK, map[string]any{"messages": deliveries})
	}
}

func (s *HttpServer) HandleDelete() http.HandlerFunc {
	type request struct {
		DecryptedHash   string   `json:"decryptedHash"`
		DecryptedHashes []string `json:"decryptedHashes"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}

		hashes := req.DecryptedHashes
		if req.DecryptedHash != "" {
			hashes = append(hashes, req.DecryptedHash)
		}
		if len(hashes) == 0 {
			writeError(w, errors.InvalidArg("Missing field: 'decryptedHashes'"))
			return
		}

		collected, err := s.relayService.ConfirmCollect(r.Context(), hashes)
		if err != nil {
			writeError(w, err)
			return
		}

		writeEnvelope(w, http.StatusOK, map[string]int{"collected": collected})
	}
}

type field struct {
	name  string
	value string
}

func requireFields(code errors.Code, fields ...field) error {
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, fmt.Sprintf("'%s'", f.name))
		}
	}
	if len(missing) == 0 {
		return nil
	}

	noun := "field"
	if len(missing) > 1 {
		noun = "fields"
	}
	return errors.New(code, "Query", fmt.Sprintf("Missing %s: %s", noun, strings.Join(missing, " and ")))
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.InvalidArg("Request body is not valid JSON")
	}
	return nil
}

func writeEnvelope(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(&model.Envelope{
		Meta: model.Meta{Code: code},
		Data: data,
	})
}

func writeError(w http.ResponseWriter, err error) {
	ae := errors.AsAppError(err)
	code := errors.HTTPStatus(ae.Code)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(&model.Envelope{
		Meta: model.Meta{
			Code: code,
			Error: &model.EnvelopeErr{
				Type:    ae.Type,
				Message: ae.Message,
			},
		},
		Data: struct{}{},
	})
}
