package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpectrexWizard/Q-Reserve/internal/access"
	"github.com/SpectrexWizard/Q-Reserve/internal/domain"
	"github.com/SpectrexWizard/Q-Reserve/internal/events"
)

func TestCommentServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("staff comment notifies the ticket creator", func(t *testing.T) {
		db := newMemDB()
		creator := db.seedUser("alice", domain.RoleEndUser, true)
		agent := db.seedUser("bob", domain.RoleAgent, true)
		db.seedTicket("t1", creator.ID, "cat-1")
		before := db.ticketByID("t1").UpdatedAt
		svc, recorder := newCommentServiceForTest(db, access.AgentVisibilityAll)

		comment, err := svc.CreateComment(ctx, agent, "t1", CommentCreateInput{Content: "  Working on it.  "})
		require.NoError(t, err)
		assert.Equal(t, "Working on it.", comment.Content)
		assert.False(t, comment.IsInternal)
		assert.Equal(t, agent.ID, comment.AuthorID)

		// Commenting counts as activity on the ticket itself.
		assert.True(t, db.ticketByID("t1").UpdatedAt.After(before))

		published := recorder.byType(events.EventTicketCommentAdded)
		require.Len(t, published, 1)
		payload, ok := published[0].Payload.(events.TicketCommentAddedPayload)
		require.True(t, ok)
		assert.Equal(t, comment.ID, payload.CommentID)
		assert.Equal(t, "Working on it.", payload.BodyPreview)
		assert.Equal(t, creator.Email, payload.Recipient.Email)
	})

	t.Run("long bodies are previewed", func(t *testing.T) {
		db := newMemDB()
		creator := db.seedUser("alice", domain.RoleEndUser, true)
		agent := db.seedUser("bob", domain.RoleAgent, true)
		db.seedTicket("t1", creator.ID, "cat-1")
		svc, recorder := newCommentServiceForTest(db, access.AgentVisibilityAll)

		body := strings.Repeat("x", 200)
		_, err := svc.CreateComment(ctx, agent, "t1", CommentCreateInput{Content: body})
		require.NoError(t, err)

		published := recorder.byType(events.EventTicketCommentAdded)
		require.Len(t, published, 1)
		payload := published[0].Payload.(events.TicketCommentAddedPayload)
		assert.Len(t, payload.BodyPreview, commentPreviewLength)
		assert.True(t, strings.HasSuffix(payload.BodyPreview, "..."))
	})

	t.Run("own comments raise no notification", func(t *testing.T) {
		db := newMemDB()
		creator := db.seedUser("alice", domain.RoleEndUser, true)
		db.seedTicket("t1", creator.ID, "cat-1")
		svc, recorder := newCommentServiceForTest(db, access.AgentVisibilityAssigned)

		_, err := svc.CreateComment(ctx, creator, "t1", CommentCreateInput{Content: "any update?"})
		require.NoError(t, err)
		assert.Empty(t, recorder.all())
	})

	t.Run("internal comments stay silent", func(t *testing.T) {
		db := newMemDB()
		creator := db.seedUser("alice", domain.RoleEndUser, true)
		agent := db.seedUser("bob", domain.RoleAgent, true)
		db.seedTicket("t1", creator.ID, "cat-1")
		svc, recorder := newCommentServiceForTest(db, access.AgentVisibilityAll)

		comment, err := svc.CreateComment(ctx, agent, "t1", CommentCreateInput{Content: "customer is confused", IsInternal: true})
		require.NoError(t, err)
		assert.True(t, comment.IsInternal)
		assert.Empty(t, recorder.all())
	})

	t.Run("non-staff internal requests are downgraded", func(t *testing.T) {
		db := newMemDB()
		creator := db.seedUser("alice", domain.RoleEndUser, true)
		db.seedTicket("t1", creator.ID, "cat-1")
		svc, _ := newCommentServiceForTest(db, access.AgentVisibilityAssigned)

		comment, err := svc.CreateComment(ctx, creator, "t1", CommentCreateInput{Content: "psst", IsInternal: true})
		require.NoError(t, err)
		assert.False(t, comment.IsInternal)
	})

	t.Run("parent references resolve or drop silently", func(t *testing.T) {
		db := newMemDB()
		creator := db.seedUser("alice", domain.RoleEndUser, true)
		dave := db.seedUser("dave", domain.RoleEndUser, true)
		agent := db.seedUser("bob", domain.RoleAgent, true)
		db.seedTicket("t1", creator.ID, "cat-1")
		db.seedTicket("t2", dave.ID, "cat-1")
		svc, _ := newCommentServiceForTest(db, access.AgentVisibilityAll)

		root, err := svc.CreateComment(ctx, agent, "t1", CommentCreateInput{Content: "root"})
		require.NoError(t, err)
		foreign, err := svc.CreateComment(ctx, agent, "t2", CommentCreateInput{Content: "elsewhere"})
		require.NoError(t, err)

		reply, err := svc.CreateComment(ctx, agent, "t1", CommentCreateInput{Content: "reply", ParentID: &root.ID})
		require.NoError(t, err)
		require.NotNil(t, reply.ParentID)
		assert.Equal(t, root.ID, *reply.ParentID)

		dangling := "no-such-comment"
		orphan, err := svc.CreateComment(ctx, agent, "t1", CommentCreateInput{Content: "orphan", ParentID: &dangling})
		require.NoError(t, err)
		assert.Nil(t, orphan.ParentID)

		crossed, err := svc.CreateComment(ctx, agent, "t1", CommentCreateInput{Content: "crossed", ParentID: &foreign.ID})
		require.NoError(t, err)
		assert.Nil(t, crossed.ParentID)
	})

	t.Run("guards", func(t *testing.T) {
		db := newMemDB()
		creator := db.seedUser("alice", domain.RoleEndUser, true)
		other := db.seedUser("mallory", domain.RoleEndUser, true)
		db.seedTicket("t1", creator.ID, "cat-1")
		svc, _ := newCommentServiceForTest(db, access.AgentVisibilityAssigned)

		_, err := svc.CreateComment(ctx, creator, "t1", CommentCreateInput{Content: "   "})
		requireDomainCode(t, err, "VALIDATION_FAILED")

		_, err = svc.CreateComment(ctx, creator, "nope", CommentCreateInput{Content: "hello"})
		requireDomainCode(t, err, "NOT_FOUND")

		_, err = svc.CreateComment(ctx, other, "t1", CommentCreateInput{Content: "hello"})
		requireDomainCode(t, err, "FORBIDDEN")
	})
}

func TestCommentServiceEdit(t *testing.T) {
	ctx := context.Background()

	db := newMemDB()
	creator := db.seedUser("alice", domain.RoleEndUser, true)
	agent := db.seedUser("bob", domain.RoleAgent, true)
	admin := db.seedUser("root", domain.RoleAdmin, true)
	db.seedTicket("t1", creator.ID, "cat-1")
	svc, _ := newCommentServiceForTest(db, access.AgentVisibilityAll)

	comment, err := svc.CreateComment(ctx, creator, "t1", CommentCreateInput{Content: "orignal"})
	require.NoError(t, err)

	t.Run("author may edit", func(t *testing.T) {
		edited, err := svc.EditComment(ctx, creator, comment.ID, "original")
		require.NoError(t, err)
		assert.Equal(t, "original", edited.Content)
	})

	t.Run("admin may edit anyone's comment", func(t *testing.T) {
		edited, err := svc.EditComment(ctx, admin, comment.ID, "moderated")
		require.NoError(t, err)
		assert.Equal(t, "moderated", edited.Content)
	})

	t.Run("agents may not edit others' comments", func(t *testing.T) {
		_, err := svc.EditComment(ctx, agent, comment.ID, "hijacked")
		requireDomainCode(t, err, "FORBIDDEN")
	})

	t.Run("blank content", func(t *testing.T) {
		_, err := svc.EditComment(ctx, creator, comment.ID, "  ")
		requireDomainCode(t, err, "VALIDATION_FAILED")
	})

	t.Run("missing comment", func(t *testing.T) {
		_, err := svc.EditComment(ctx, creator, "nope", "text")
		requireDomainCode(t, err, "NOT_FOUND")
	})

	t.Run("deleted comments are frozen", func(t *testing.T) {
		require.NoError(t, svc.DeleteComment(ctx, creator, comment.ID))
		_, err := svc.EditComment(ctx, creator, comment.ID, "resurrect")
		requireDomainCode(t, err, "CONFLICT")
	})
}

func TestCommentServiceDelete(t *testing.T) {
	ctx := context.Background()

	db := newMemDB()
	creator := db.seedUser("alice", domain.RoleEndUser, true)
	agent := db.seedUser("bob", domain.RoleAgent, true)
	admin := db.seedUser("root", domain.RoleAdmin, true)
	db.seedTicket("t1", creator.ID, "cat-1")
	svc, _ := newCommentServiceForTest(db, access.AgentVisibilityAll)

	comment, err := svc.CreateComment(ctx, creator, "t1", CommentCreateInput{Content: "regrettable"})
	require.NoError(t, err)

	t.Run("agents may not delete others' comments", func(t *testing.T) {
		err := svc.DeleteComment(ctx, agent, comment.ID)
		requireDomainCode(t, err, "FORBIDDEN")
	})

	t.Run("author delete leaves a tombstone", func(t *testing.T) {
		require.NoError(t, svc.DeleteComment(ctx, creator, comment.ID))
		stored, err := db.Store().Comments.GetByID(ctx, comment.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsDeleted)
		assert.Equal(t, domain.CommentTombstone, stored.Content)
	})

	t.Run("repeat delete is a no-op", func(t *testing.T) {
		stored, err := db.Store().Comments.GetByID(ctx, comment.ID)
		require.NoError(t, err)
		before := stored.UpdatedAt

		require.NoError(t, svc.DeleteComment(ctx, creator, comment.ID))
		after, err := db.Store().Comments.GetByID(ctx, comment.ID)
		require.NoError(t, err)
		assert.Equal(t, before, after.UpdatedAt)
	})

	t.Run("admin delete keeps the thread intact", func(t *testing.T) {
		root, err := svc.CreateComment(ctx, creator, "t1", CommentCreateInput{Content: "also regrettable"})
		require.NoError(t, err)
		reply, err := svc.CreateComment(ctx, agent, "t1", CommentCreateInput{Content: "noted", ParentID: &root.ID})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteComment(ctx, admin, root.ID))

		thread, err := svc.ListComments(ctx, agent, "t1")
		require.NoError(t, err)
		var storedRoot, storedReply *domain.Comment
		for i := range thread {
			switch thread[i].ID {
			case root.ID:
				storedRoot = &thread[i]
			case reply.ID:
				storedReply = &thread[i]
			}
		}
		require.NotNil(t, storedRoot, "tombstoned comment must stay listed")
		require.NotNil(t, storedReply)
		assert.Equal(t, domain.CommentTombstone, storedRoot.Content)
		require.NotNil(t, storedReply.ParentID)
		assert.Equal(t, root.ID, *storedReply.ParentID)
	})

	t.Run("missing comment", func(t *testing.T) {
		err := svc.DeleteComment(ctx, creator, "nope")
		requireDomainCode(t, err, "NOT_FOUND")
	})
}

func TestCommentServiceList(t *testing.T) {
	ctx := context.Background()

	db := newMemDB()
	creator := db.seedUser("alice", domain.RoleEndUser, true)
	other := db.seedUser("mallory", domain.RoleEndUser, true)
	agent := db.seedUser("bob", domain.RoleAgent, true)
	db.seedTicket("t1", creator.ID, "cat-1")
	svc, _ := newCommentServiceForTest(db, access.AgentVisibilityAll)

	_, err := svc.CreateComment(ctx, creator, "t1", CommentCreateInput{Content: "first"})
	require.NoError(t, err)
	_, err = svc.CreateComment(ctx, agent, "t1", CommentCreateInput{Content: "internal note", IsInternal: true})
	require.NoError(t, err)
	_, err = svc.CreateComment(ctx, agent, "t1", CommentCreateInput{Content: "second"})
	require.NoError(t, err)

	t.Run("staff see the full thread in order", func(t *testing.T) {
		comments, err := svc.ListComments(ctx, agent, "t1")
		require.NoError(t, err)
		require.Len(t, comments, 3)
		assert.Equal(t, "first", comments[0].Content)
		assert.Equal(t, "internal note", comments[1].Content)
		assert.Equal(t, "second", comments[2].Content)
	})

	t.Run("end users never see internal notes", func(t *testing.T) {
		comments, err := svc.ListComments(ctx, creator, "t1")
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, "first", comments[0].Content)
		assert.Equal(t, "second", comments[1].Content)
	})

	t.Run("non-viewers are refused", func(t *testing.T) {
		_, err := svc.ListComments(ctx, other, "t1")
		requireDomainCode(t, err, "FORBIDDEN")
	})

	t.Run("missing ticket", func(t *testing.T) {
		_, err := svc.ListComments(ctx, creator, "nope")
		requireDomainCode(t, err, "NOT_FOUND")
	})
}
