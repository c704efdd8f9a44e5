package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/invopop/ctxi18n/i18n"

	"github.com/CoPhuocVinh/demo-kafka/internal/application"
	"github.com/CoPhuocVinh/demo-kafka/internal/domain"
	"github.com/CoPhuocVinh/demo-kafka/internal/utils"
)

const maxBodyBytes = 1 << 20

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type startRequest struct {
	IntervalMs int64 `json:"intervalMs"`
}

type startResponse struct {
	statusResponse
	IntervalMs int64 `json:"intervalMs"`
}

type configRequest struct {
	PartitionWeights []int `json:"partitionWeights"`
}

type configResponse struct {
	statusResponse
	Config configRequest `json:"config"`
}

type sendResponse struct {
	statusResponse
	Offset  int64           `json:"offset"`
	Payload json.RawMessage `json:"payload"`
}

// offsetValue accepts an offset as a JSON number or a decimal string.
type offsetValue struct {
	value int64
	set   bool
}

func (o *offsetValue) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return application.ErrInvalidOffset
	}
	o.value, o.set = n, true
	return nil
}

type seekRequest struct {
	ConsumerID string      `json:"consumerId"`
	Offset     offsetValue `json:"offset"`
	Partition  *int32      `json:"partition,omitempty"`
	Topic      string      `json:"topic,omitempty"`
}

type seekResponse struct {
	statusResponse
	ConsumerID string `json:"consumerId"`
	Topic      string `json:"topic"`
	Partition  int32  `json:"partition"`
	Offset     string `json:"offset"`
}

type partitionsResponse struct {
	Topic      string                    `json:"topic"`
	Group      string                    `json:"group"`
	Partitions []domain.PartitionOffsets `json:"partitions"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Seconds(),
	})
}

func (s *Server) apiStatistics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.production.Statistics())
}

func (s *Server) apiConsumers(w http.ResponseWriter, r *http.Request) {
	if err := s.pool.Ready(); err != nil {
		writeStatus(w, r, mapErrorToHTTPStatus(err), "error", "demo.pool_not_started")
		return
	}
	writeJSON(w, http.StatusOK, s.pool.Consumers())
}

func (s *Server) apiPartitions(w http.ResponseWriter, r *http.Request) {
	offsets, err := s.groups.PartitionStatus(r.Context())
	if err != nil {
		writeStatus(w, r, mapErrorToHTTPStatus(err), "error", "demo.partitions_failed")
		return
	}
	writeJSON(w, http.StatusOK, partitionsResponse{
		Topic:      s.pool.Topic(),
		Group:      s.pool.GroupID(),
		Partitions: offsets,
	})
}

func (s *Server) apiStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeOptional(r, &req); err != nil {
		utils.Logger.Warn("api start bad request", "err", err)
		writeStatus(w, r, http.StatusBadRequest, "error", "demo.bad_request")
		return
	}
	interval := s.production.Start(time.Duration(req.IntervalMs) * time.Millisecond)
	writeJSON(w, http.StatusOK, startResponse{
		statusResponse: message(r, "started", "demo.started"),
		IntervalMs:     interval.Milliseconds(),
	})
}

func (s *Server) apiStop(w http.ResponseWriter, r *http.Request) {
	key := "demo.stopped"
	if !s.production.Stop() {
		key = "demo.already_stopped"
	}
	writeStatus(w, r, http.StatusOK, "stopped", key)
}

func (s *Server) apiConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		utils.Logger.Warn("api config bad request", "err", err)
		writeStatus(w, r, http.StatusBadRequest, "error", "demo.bad_request")
		return
	}
	// a rejected vector is not an error: the previous weights stay in effect
	resp := configResponse{statusResponse: message(r, "updated", "demo.weights_updated")}
	if !s.production.Configure(req.PartitionWeights) {
		resp.statusResponse = message(r, "ignored", "demo.weights_ignored")
	}
	resp.Config = configRequest{PartitionWeights: s.production.Weights()}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) apiSend(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeStatus(w, r, http.StatusBadRequest, "error", "demo.bad_request")
		return
	}
	if len(bytes.TrimSpace(body)) > 0 && !json.Valid(body) {
		writeStatus(w, r, http.StatusBadRequest, "error", "demo.bad_request")
		return
	}

	offset, err := s.production.SendCustom(r.Context(), body)
	if err != nil {
		key := "demo.send_failed"
		if errors.Is(err, application.ErrEmptyPayload) {
			key = "demo.empty_payload"
		}
		writeStatus(w, r, mapErrorToHTTPStatus(err), "error", key)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{
		statusResponse: message(r, "sent", "demo.sent"),
		Offset:         offset,
		Payload:        body,
	})
}

func (s *Server) apiSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		utils.Logger.Warn("api seek bad request", "err", err)
		key := "demo.bad_request"
		if errors.Is(err, application.ErrInvalidOffset) {
			key = "demo.invalid_offset"
		}
		writeStatus(w, r, http.StatusBadRequest, "error", key)
		return
	}
	if !req.Offset.set {
		writeStatus(w, r, http.StatusBadRequest, "error", "demo.invalid_offset")
		return
	}
	if err := s.pool.Ready(); err != nil {
		writeStatus(w, r, mapErrorToHTTPStatus(err), "error", "demo.pool_not_started")
		return
	}

	target := application.SeekTarget{
		Topic:     req.Topic,
		Partition: s.pool.HomePartition(req.ConsumerID),
		Offset:    req.Offset.value,
	}
	if target.Topic == "" {
		target.Topic = s.pool.Topic()
	}
	if req.Partition != nil {
		target.Partition = *req.Partition
	}

	if !s.pool.Seek(req.ConsumerID, target) {
		writeStatus(w, r, http.StatusNotFound, "not_found", "demo.consumer_not_found")
		return
	}
	writeJSON(w, http.StatusOK, seekResponse{
		statusResponse: message(r, "seeking", "demo.seeking"),
		ConsumerID:     req.ConsumerID,
		Topic:          target.Topic,
		Partition:      target.Partition,
		Offset:         strconv.FormatInt(target.Offset, 10),
	})
}

// decodeOptional decodes a JSON body when one is present.
func decodeOptional(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, application.ErrEmptyPayload), errors.Is(err, application.ErrInvalidOffset):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrPoolNotStarted), errors.Is(err, domain.ErrLogClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func message(r *http.Request, status, key string) statusResponse {
	return statusResponse{Status: status, Message: i18n.T(r.Context(), key)}
}

func writeStatus(w http.ResponseWriter, r *http.Request, code int, status, key string) {
	writeJSON(w, code, message(r, status, key))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Logger.Error("encode response failed", "err", err)
	}
}
