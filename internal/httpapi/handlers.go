package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/warroom-backend/internal/apperr"
	"github.com/DoyleJ11/warroom-backend/internal/coordinator"
	"github.com/DoyleJ11/warroom-backend/internal/ws"
	ptypes "github.com/DoyleJ11/warroom-backend/pkg/types"
)

const maxBodyBytes = 1 << 16

func CreateRoom(svc *coordinator.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ptypes.CreateRoomRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.ErrBadRequest)
			return
		}

		roomID, participantID, err := svc.CreateRoom(req.Name, req.LeaderName)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, ptypes.CreateRoomResponse{
			RoomID:        roomID,
			ParticipantID: participantID,
		})
	}
}

// RoomInfo lets a client check a code before connecting. It never reveals
// channels.
func RoomInfo(svc *coordinator.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Snapshot(chi.URLParam(r, "code"), "")
		if errors.Is(err, apperr.ErrRoomNotFound) || errors.Is(err, apperr.ErrRoomClosed) {
			writeJSON(w, http.StatusNotFound, ptypes.RoomInfo{Exists: false})
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		snap := ws.ToSnapshot(view)
		writeJSON(w, http.StatusOK, ptypes.RoomInfo{
			Exists:       true,
			RoomID:       snap.RoomID,
			Name:         snap.Name,
			Phase:        snap.Session.Phase,
			Participants: snap.Participants,
		})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	body := ptypes.Error{Code: apperr.Code(err), Message: "internal error"}
	if e, ok := apperr.As(err); ok {
		body.Message = e.Message
	}
	writeJSON(w, apperr.HTTPStatus(err), body)
}
