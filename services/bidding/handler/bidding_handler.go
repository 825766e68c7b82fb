package handler

import (
	"context"
	"io"
	"net/http"

	bidding "bidwar/internal/biddingService"
	"bidwar/internal/dispatcher"
	model "bidwar/internal/models"
	"bidwar/services/bidding/helpers"
	"bidwar/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -destination=mock_bidding_handler.go -package=handler bidwar/services/bidding/handler BiddingServiceInterface

type BiddingServiceInterface interface {
	CreateProject(ctx context.Context, req bidding.NewProject) (model.Project, error)
	GetProject(ctx context.Context, projectID string) (model.Project, error)
	GetAuctionState(ctx context.Context, projectID string) (model.AuctionState, error)
	GetRankedView(ctx context.Context, projectID string) ([]model.RankedBid, error)
	SubmitBid(ctx context.Context, projectID, participantID string, amount decimal.Decimal) (bidding.SubmitResult, error)
	WithdrawBid(ctx context.Context, projectID, participantID string) error
	GetPosition(ctx context.Context, projectID, participantID string) (bidding.Position, error)
	Award(ctx context.Context, projectID, handle string) (bidding.AwardResult, error)
	Cancel(ctx context.Context, projectID, reason string) error
	Subscribe(ctx context.Context, projectID string) (*dispatcher.Subscription, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// CreateProjectHandler handles POST /projects
func (h *BiddingHandler) CreateProjectHandler(c *gin.Context) {
	var req helpers.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateProjectHandler", err)
		return
	}
	if err := req.Validate(); err != nil {
		helpers.HandleBindError(c, "CreateProjectHandler", err)
		return
	}

	np, err := req.ToNewProject()
	if err != nil {
		helpers.HandleServiceError(c, "CreateProjectHandler", err, map[string]any{"owner_id": req.OwnerID})
		return
	}

	project, err := h.service.CreateProject(c.Request.Context(), np)
	if err != nil {
		helpers.HandleServiceError(c, "CreateProjectHandler", err, map[string]any{
			"project_id": req.ProjectID,
			"owner_id":   req.OwnerID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewProjectResponse(project), "project created successfully")
	helpers.LogSuccess("CreateProjectHandler", "project created successfully", map[string]any{
		"project_id": project.ProjectID,
		"owner_id":   project.OwnerID,
		"closes_at":  project.ClosesAt,
	})
}

// GetProjectHandler handles GET /projects/:project_id
func (h *BiddingHandler) GetProjectHandler(c *gin.Context) {
	projectID := c.Param("project_id")
	project, err := h.service.GetProject(c.Request.Context(), projectID)
	if err != nil {
		helpers.HandleServiceError(c, "GetProjectHandler", err, map[string]any{"project_id": projectID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewProjectResponse(project), "project retrieved successfully")
}

// GetStateHandler handles GET /projects/:project_id/state
func (h *BiddingHandler) GetStateHandler(c *gin.Context) {
	projectID := c.Param("project_id")
	state, err := h.service.GetAuctionState(c.Request.Context(), projectID)
	if err != nil {
		helpers.HandleServiceError(c, "GetStateHandler", err, map[string]any{"project_id": projectID})
		return
	}

	resp := helpers.StateResponse{ProjectID: projectID, State: string(state)}
	utils.JSONResponse(c, http.StatusOK, resp, "state retrieved successfully")
}

// GetRankingHandler handles GET /projects/:project_id/ranking
func (h *BiddingHandler) GetRankingHandler(c *gin.Context) {
	projectID := c.Param("project_id")
	view, err := h.service.GetRankedView(c.Request.Context(), projectID)
	if err != nil {
		helpers.HandleServiceError(c, "GetRankingHandler", err, map[string]any{"project_id": projectID})
		return
	}

	if view == nil {
		view = []model.RankedBid{}
	}

	utils.JSONResponse(c, http.StatusOK, view, "ranking retrieved successfully")
	helpers.LogSuccess("GetRankingHandler", "ranking retrieved successfully", map[string]any{
		"project_id": projectID,
		"count":      len(view),
	})
}

// SubmitBidHandler handles POST /projects/:project_id/bids
func (h *BiddingHandler) SubmitBidHandler(c *gin.Context) {
	projectID := c.Param("project_id")
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SubmitBidHandler", err)
		return
	}
	if err := req.Validate(); err != nil {
		helpers.HandleBindError(c, "SubmitBidHandler", err)
		return
	}

	amount := req.Amount
	result, err := h.service.SubmitBid(c.Request.Context(), projectID, req.ParticipantID, amount)
	if err != nil {
		helpers.HandleServiceError(c, "SubmitBidHandler", err, map[string]any{
			"project_id":     projectID,
			"participant_id": req.ParticipantID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewSubmitBidResponse(result), "bid recorded successfully")
	helpers.LogSuccess("SubmitBidHandler", "bid recorded successfully", map[string]any{
		"project_id": projectID,
		"handle":     result.Handle,
		"rank":       result.Rank,
		"amount":     amount.String(),
	})
}

// WithdrawBidHandler handles DELETE /projects/:project_id/bids/:participant_id
func (h *BiddingHandler) WithdrawBidHandler(c *gin.Context) {
	projectID := c.Param("project_id")
	participantID := c.Param("participant_id")
	if err := h.service.WithdrawBid(c.Request.Context(), projectID, participantID); err != nil {
		helpers.HandleServiceError(c, "WithdrawBidHandler", err, map[string]any{
			"project_id":     projectID,
			"participant_id": participantID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, nil, "bid withdrawn successfully")
	helpers.LogSuccess("WithdrawBidHandler", "bid withdrawn successfully", map[string]any{
		"project_id": projectID,
	})
}

// GetPositionHandler handles GET /projects/:project_id/participants/:participant_id/position
func (h *BiddingHandler) GetPositionHandler(c *gin.Context) {
	projectID := c.Param("project_id")
	participantID := c.Param("participant_id")
	position, err := h.service.GetPosition(c.Request.Context(), projectID, participantID)
	if err != nil {
		helpers.HandleServiceError(c, "GetPositionHandler", err, map[string]any{
			"project_id":     projectID,
			"participant_id": participantID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewPositionResponse(position), "position retrieved successfully")
}

// AwardHandler handles POST /projects/:project_id/award
func (h *BiddingHandler) AwardHandler(c *gin.Context) {
	projectID := c.Param("project_id")
	var req helpers.AwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "AwardHandler", err)
		return
	}

	result, err := h.service.Award(c.Request.Context(), projectID, req.Handle)
	if err != nil {
		helpers.HandleServiceError(c, "AwardHandler", err, map[string]any{
			"project_id": projectID,
			"handle":     req.Handle,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, result, "project awarded successfully")
	helpers.LogSuccess("AwardHandler", "project awarded successfully", map[string]any{
		"project_id": projectID,
		"handle":     result.Handle,
		"amount":     result.Amount.String(),
	})
}

// CancelHandler handles POST /projects/:project_id/cancel. The body is optional.
func (h *BiddingHandler) CancelHandler(c *gin.Context) {
	projectID := c.Param("project_id")
	var req helpers.CancelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			helpers.HandleBindError(c, "CancelHandler", err)
			return
		}
	}

	if err := h.service.Cancel(c.Request.Context(), projectID, req.Reason); err != nil {
		helpers.HandleServiceError(c, "CancelHandler", err, map[string]any{"project_id": projectID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.StateResponse{
		ProjectID: projectID,
		State:     string(model.StateCancelled),
	}, "project cancelled successfully")
	helpers.LogSuccess("CancelHandler", "project cancelled successfully", map[string]any{
		"project_id": projectID,
		"reason":     req.Reason,
	})
}

// StreamEventsHandler handles GET /projects/:project_id/events as a
// Server-Sent Events stream. It ends when the client goes away or the
// project reaches a terminal state.
func (h *BiddingHandler) StreamEventsHandler(c *gin.Context) {
	projectID := c.Param("project_id")
	ctx := c.Request.Context()
	sub, err := h.service.Subscribe(ctx, projectID)
	if err != nil {
		helpers.HandleServiceError(c, "StreamEventsHandler", err, map[string]any{"project_id": projectID})
		return
	}
	defer sub.Close()

	utils.Debug("StreamEventsHandler: subscriber attached", map[string]any{
		"project_id":      projectID,
		"subscription_id": sub.ID,
	})

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	delivered := 0
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(string(event.Kind), event)
			delivered++
			return true
		case <-ctx.Done():
			return false
		}
	})

	utils.Debug("StreamEventsHandler: subscriber detached", map[string]any{
		"project_id":      projectID,
		"subscription_id": sub.ID,
		"delivered":       delivered,
	})
}
