package main

import (
	"context"
	"errors"
	"time"

	bidding "bidwar/internal/biddingService"
	"bidwar/internal/biddingerrors"
	"bidwar/utils"

	"github.com/shopspring/decimal"
)

const demoProjectID = "demo-roof"

// seedDemo publishes a sample project with a few opening bids so the API
// has something to show on a fresh start
func seedDemo(ctx context.Context, svc *bidding.BiddingService) {
	project, err := svc.CreateProject(ctx, bidding.NewProject{
		ProjectID:       demoProjectID,
		OwnerID:         "demo-owner",
		Title:           "Warehouse roof replacement",
		BudgetMin:       decimal.NewFromInt(100000),
		BudgetMax:       decimal.NewFromInt(200000),
		Currency:        "USD",
		ClosesAt:        time.Now().Add(72 * time.Hour),
		MaxParticipants: 20,
	})
	if errors.Is(err, biddingerrors.ErrProjectExists) {
		utils.Info("Demo project already present", map[string]any{"projectID": demoProjectID})
		return
	}
	if err != nil {
		utils.Error("Failed to seed demo project", map[string]any{"error": err.Error()})
		return
	}

	bids := map[string]int64{
		"demo-bidder-1": 180000,
		"demo-bidder-2": 165000,
		"demo-bidder-3": 172500,
	}
	for participant, amount := range bids {
		if _, err := svc.SubmitBid(ctx, project.ProjectID, participant, decimal.NewFromInt(amount)); err != nil {
			utils.Warn("Failed to seed demo bid", map[string]any{"participant": participant, "error": err.Error()})
		}
	}
	utils.Info("Demo project seeded", map[string]any{"projectID": project.ProjectID, "bids": len(bids)})
}
