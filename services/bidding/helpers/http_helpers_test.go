package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"bidwar/internal/biddingerrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{biddingerrors.ErrProjectNotFound, http.StatusNotFound},
		{biddingerrors.ErrNoActiveBid, http.StatusNotFound},
		{biddingerrors.ErrAuctionNotOpen, http.StatusConflict},
		{biddingerrors.ErrInvalidState, http.StatusConflict},
		{biddingerrors.ErrParticipantCapReached, http.StatusConflict},
		{biddingerrors.ErrProjectExists, http.StatusConflict},
		{biddingerrors.ErrAmountOutOfRange, http.StatusBadRequest},
		{biddingerrors.ErrInvalidSelection, http.StatusBadRequest},
		{biddingerrors.ErrInvalidBid, http.StatusBadRequest},
		{biddingerrors.ErrInvalidProject, http.StatusBadRequest},
		{biddingerrors.ErrRateLimited, http.StatusTooManyRequests},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			status, message := MapErrorToHTTP(fmt.Errorf("service: %w", tc.err))
			require.Equal(t, tc.status, status)
			require.NotEmpty(t, message)
		})
	}
}

func TestCreateProjectRequestToNewProject(t *testing.T) {
	opensAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	zero := "0s"
	bad := "tomorrow"

	req := CreateProjectRequest{
		OwnerID:   "owner1",
		Title:     "Fit-out",
		BudgetMin: decimal.RequireFromString("1000.25"),
		BudgetMax: decimal.RequireFromString("5000.5"),
		OpensAt:   &opensAt,
		ClosesAt:  opensAt.Add(48 * time.Hour),
	}

	np, err := req.ToNewProject()
	require.NoError(t, err)
	require.Nil(t, np.CoolingOff, "absent cooling_off selects the default")
	require.Equal(t, opensAt, np.OpensAt)
	require.Equal(t, "1000.25", np.BudgetMin.String())
	require.Equal(t, "5000.5", np.BudgetMax.String())

	req.CoolingOff = &zero
	np, err = req.ToNewProject()
	require.NoError(t, err)
	require.NotNil(t, np.CoolingOff)
	require.Zero(t, *np.CoolingOff)

	req.CoolingOff = &bad
	_, err = req.ToNewProject()
	require.ErrorIs(t, err, biddingerrors.ErrInvalidProject)
}

func TestMoneyFieldsDecodeExactly(t *testing.T) {
	var bid PlaceBidRequest
	require.NoError(t, json.Unmarshal([]byte(`{"participant_id":"p1","amount":"150000.10"}`), &bid))
	require.Equal(t, "150000.1", bid.Amount.String())
	require.NoError(t, bid.Validate())

	require.NoError(t, json.Unmarshal([]byte(`{"participant_id":"p1","amount":0.1}`), &bid))
	require.True(t, bid.Amount.Equal(decimal.RequireFromString("0.1")))

	tests := []struct {
		name string
		body string
	}{
		{"missing", `{"participant_id":"p1"}`},
		{"zero", `{"participant_id":"p1","amount":0}`},
		{"negative", `{"participant_id":"p1","amount":"-5"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var req PlaceBidRequest
			require.NoError(t, json.Unmarshal([]byte(tc.body), &req))
			require.Error(t, req.Validate())
		})
	}

	var project CreateProjectRequest
	require.NoError(t, json.Unmarshal([]byte(`{"budget_min":"1000.01","budget_max":2000}`), &project))
	require.NoError(t, project.Validate())
	require.Equal(t, "1000.01", project.BudgetMin.String())

	project.BudgetMin = decimal.NewFromInt(-1)
	require.Error(t, project.Validate())
	project.BudgetMin = decimal.Zero
	project.BudgetMax = decimal.Zero
	require.Error(t, project.Validate())
}
