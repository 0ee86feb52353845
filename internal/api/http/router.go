package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/SpectrexWizard/Q-Reserve/internal/api/http/handlers"
	"github.com/SpectrexWizard/Q-Reserve/internal/auth"
	"github.com/SpectrexWizard/Q-Reserve/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Tickets    *handlers.TicketsHandler
	Comments   *handlers.CommentsHandler
	Votes      *handlers.VotesHandler
	Categories *handlers.CategoriesHandler
	Users      *handlers.UsersHandler
	Actor      *auth.ActorMiddleware
}

// RegisterRoutes wires HTTP routes. Role guards here are coarse gates; the
// services re-check per-object permissions.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api/v1", cfg.Actor.Handle, auth.RequireAuthenticated())

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", auth.RequireStaff(), cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/status", auth.RequireStaff(), cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/assign", auth.RequireStaff(), cfg.Tickets.Assign)
	tickets.Patch("/:id/details", cfg.Tickets.UpdateDetails)
	tickets.Get("/:id/audit", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.ListAuditLog)
	tickets.Post("/:id/comments", cfg.Comments.CreateComment)
	tickets.Get("/:id/comments", cfg.Comments.ListComments)
	tickets.Post("/:id/vote", cfg.Votes.ToggleVote)
	tickets.Get("/:id/votes", cfg.Votes.GetVoteSummary)
	tickets.Post("/:id/attachments", cfg.Tickets.AddAttachment)
	tickets.Get("/:id/attachments", cfg.Tickets.ListAttachments)

	comments := api.Group("/comments")
	comments.Patch("/:id", cfg.Comments.UpdateComment)
	comments.Delete("/:id", cfg.Comments.DeleteComment)

	categories := api.Group("/categories")
	categories.Get("", cfg.Categories.ListCategories)
	categories.Post("", auth.RequireRole(domain.RoleAdmin), cfg.Categories.CreateCategory)
	categories.Patch("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Categories.UpdateCategory)
	categories.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Categories.DeleteCategory)

	users := api.Group("/users")
	users.Post("", auth.RequireRole(domain.RoleAdmin), cfg.Users.CreateUser)
	users.Get("", auth.RequireRole(domain.RoleAdmin), cfg.Users.ListUsers)
	users.Get("/assignable", auth.RequireStaff(), cfg.Users.ListAssignable)
	users.Get("/:id", cfg.Users.GetUser)
	users.Patch("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Users.UpdateUser)
}
