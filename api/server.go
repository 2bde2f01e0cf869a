// Package api exposes the voting service over HTTP: registration and
// verification for voters, the vote-casting endpoint, the explorer surface
// (block listing, per-block view, chain verification), results, and the
// signature-authorized administrative operations.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"bharote-backend/ledger"
	"bharote-backend/models"
	"bharote-backend/service"
)

type Server struct {
	votingService *service.VotingService
	router        *mux.Router
}

func NewServer(votingService *service.VotingService) *Server {
	s := &Server{votingService: votingService}
	s.router = s.buildRouter()
	return s
}

// Router returns the configured HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	apiRouter := r.PathPrefix("/api").Subrouter()

	apiRouter.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	apiRouter.HandleFunc("/verify/request-otp", s.handleRequestOTP).Methods(http.MethodPost)
	apiRouter.HandleFunc("/verify/confirm", s.handleConfirmOTP).Methods(http.MethodPost)
	apiRouter.HandleFunc("/vote", s.handleCastVote).Methods(http.MethodPost)

	apiRouter.HandleFunc("/blocks", s.handleListBlocks).Methods(http.MethodGet)
	apiRouter.HandleFunc("/blocks/{number:[0-9]+}", s.handleGetBlock).Methods(http.MethodGet)
	apiRouter.HandleFunc("/chain/verify", s.handleVerifyChain).Methods(http.MethodGet)

	apiRouter.HandleFunc("/results", s.handleResults).Methods(http.MethodGet)
	apiRouter.HandleFunc("/parties", s.handleParties).Methods(http.MethodGet)
	apiRouter.HandleFunc("/constituencies", s.handleConstituencies).Methods(http.MethodGet)
	apiRouter.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	apiRouter.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	apiRouter.HandleFunc("/admin/reset", s.handleAdminReset).Methods(http.MethodPost)
	apiRouter.HandleFunc("/admin/close-voting", s.handleAdminCloseVoting).Methods(http.MethodPost)
	apiRouter.HandleFunc("/admin/credentials", s.handleAdminCredentials).Methods(http.MethodGet)

	return r
}

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Warning: failed to encode response: %v", err)
	}
}

// writeError maps the ledger error taxonomy onto HTTP statuses: eligibility
// failures are client errors the caller must resolve, commit contention is a
// retryable 503, everything unclassified is a 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotRegistered):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrNotVerified):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case ledger.IsEligibilityError(err):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrWindowClosed):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrUnknownParty):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrCommitContention):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Retryable: true})
	case errors.Is(err, service.ErrBadAdminSignature), errors.Is(err, service.ErrStaleAdminChallenge):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrAlreadyVerified),
		errors.Is(err, service.ErrNoOTPPending),
		errors.Is(err, service.ErrOTPExpired),
		errors.Is(err, service.ErrOTPMismatch):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		log.Printf("Internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// --- Registration and verification ---

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegistrationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	voter, err := s.votingService.RegisterVoter(req)
	if err != nil {
		if ledger.IsEligibilityError(err) {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, voter)
}

type otpRequest struct {
	VoterID string `json:"voter_id"`
	Code    string `json:"code,omitempty"`
}

func (s *Server) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.votingService.Verification().RequestOTP(req.VoterID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.VerificationOTPSent)})
}

func (s *Server) handleConfirmOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.votingService.Verification().ConfirmOTP(req.VoterID, req.Code); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.VerificationVerified)})
}

// --- Voting ---

type castVoteRequest struct {
	VoterID           string `json:"voter_id"`
	PartyID           string `json:"party_id"`
	DeviceFingerprint string `json:"device_fingerprint"`
}

type castVoteResponse struct {
	BlockNumber  uint64  `json:"block_number"`
	VoteHash     string  `json:"vote_hash"`
	PreviousHash *string `json:"previous_hash"`
	Timestamp    string  `json:"timestamp"`
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req castVoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !service.ValidVoterID(req.VoterID) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed voter id"})
		return
	}

	block, err := s.votingService.CastVote(req.VoterID, req.PartyID, req.DeviceFingerprint)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, castVoteResponse{
		BlockNumber:  block.BlockNumber,
		VoteHash:     block.VoteHash,
		PreviousHash: block.PreviousHash,
		Timestamp:    block.Timestamp,
	})
}

// --- Explorer ---

// blockView is the per-block shape served to the explorer.
type blockView struct {
	BlockNumber  uint64  `json:"block_number"`
	VoteHash     string  `json:"vote_hash"`
	PreviousHash *string `json:"previous_hash"`
	Timestamp    string  `json:"timestamp"`
	Status       string  `json:"status"`
}

func toBlockView(b *models.Block) blockView {
	return blockView{
		BlockNumber:  b.BlockNumber,
		VoteHash:     b.VoteHash,
		PreviousHash: b.PreviousHash,
		Timestamp:    b.Timestamp,
		Status:       string(b.Status),
	}
}

func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	blocks, total, err := s.votingService.ListBlocks(page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]blockView, len(blocks))
	for i := range blocks {
		views[i] = toBlockView(&blocks[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":  total,
		"blocks": views,
	})
}

func (s *Server) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.ParseUint(mux.Vars(r)["number"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid block number"})
		return
	}

	block, err := s.votingService.BlockByNumber(number)
	if err != nil {
		writeError(w, err)
		return
	}
	if block == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "block not found"})
		return
	}
	writeJSON(w, http.StatusOK, toBlockView(block))
}

func (s *Server) handleVerifyChain(w http.ResponseWriter, r *http.Request) {
	report, err := s.votingService.VerifyChain()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// --- Reference data, results, status ---

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	tallies, err := s.votingService.Results()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tallies)
}

func (s *Server) handleParties(w http.ResponseWriter, r *http.Request) {
	parties, err := s.votingService.Parties()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parties)
}

func (s *Server) handleConstituencies(w http.ResponseWriter, r *http.Request) {
	list, err := s.votingService.Constituencies()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.votingService.VoterStatistics()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"voting_open": s.votingService.Window().IsOpen(),
		"closes_at":   s.votingService.Window().ClosesAt(),
		"voters":      stats,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.votingService.Metrics())
}

// --- Admin ---

type adminActionRequest struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
}

func (s *Server) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	var req adminActionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.votingService.ResetLedger(req.Signature, req.Timestamp); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ledger reset"})
}

func (s *Server) handleAdminCloseVoting(w http.ResponseWriter, r *http.Request) {
	var req adminActionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.votingService.CloseVoting(req.Signature, req.Timestamp); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "voting closed"})
}

func (s *Server) handleAdminCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := s.votingService.GetAdminCredentials()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, creds)
}
