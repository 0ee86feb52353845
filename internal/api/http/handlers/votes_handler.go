package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/SpectrexWizard/Q-Reserve/internal/api/dto"
	"github.com/SpectrexWizard/Q-Reserve/internal/domain"
	"github.com/SpectrexWizard/Q-Reserve/internal/service"
	apperrors "github.com/SpectrexWizard/Q-Reserve/pkg/util"
)

// VotesHandler manages ticket vote endpoints.
type VotesHandler struct {
	votes *service.VoteService
}

// NewVotesHandler constructs handler.
func NewVotesHandler(voteService *service.VoteService) *VotesHandler {
	return &VotesHandler{votes: voteService}
}

// ToggleVote POST /tickets/:id/vote.
func (h *VotesHandler) ToggleVote(c *fiber.Ctx) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return err
	}
	var req dto.VoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.IsUpvote == nil {
		return apperrors.NewValidationError("is_upvote is required", nil)
	}
	outcome, summary, err := h.votes.ToggleVote(c.Context(), actor, c.Params("id"), *req.IsUpvote)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.VoteToggleResponse{
		Outcome: outcome,
		Summary: voteSummaryResponse(summary),
	}})
}

// GetVoteSummary GET /tickets/:id/votes.
func (h *VotesHandler) GetVoteSummary(c *fiber.Ctx) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return err
	}
	summary, err := h.votes.GetVoteSummary(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": voteSummaryResponse(summary)})
}

func voteSummaryResponse(summary *domain.VoteSummary) dto.VoteSummaryResponse {
	return dto.VoteSummaryResponse{
		Score:     summary.Score,
		Upvotes:   summary.Upvotes,
		Downvotes: summary.Downvotes,
		UserVote:  summary.UserVote,
	}
}
