// handlers/progression_routes.go
package handlers

import (
	"encoding/json"
	"errors"

	"mock-assessment-service/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ActionLocal is the fiber.Ctx local holding the resolved action name.
const ActionLocal = "action"

type Handler struct {
	Progress    *services.ProgressionService
	Leaderboard *services.LeaderboardService
	Challenges  *services.ChallengeService
	Assessments *services.AssessmentService
	Log         *zap.Logger

	actions map[string]actionFunc
}

type actionFunc func(c *fiber.Ctx, body []byte) error

func NewHandler(progress *services.ProgressionService, lb *services.LeaderboardService, challenges *services.ChallengeService, assessments *services.AssessmentService, log *zap.Logger) *Handler {
	h := &Handler{
		Progress:    progress,
		Leaderboard: lb,
		Challenges:  challenges,
		Assessments: assessments,
		Log:         log,
	}
	h.actions = map[string]actionFunc{
		"submit_test_result":       h.submitTestResult,
		"get_questions":            h.getQuestions,
		"get_test_history":         h.getTestHistory,
		"get_user_progress":        h.getUserProgress,
		"get_leaderboard":          h.getLeaderboard,
		"get_daily_challenge":      h.getDailyChallenge,
		"complete_daily_challenge": h.completeDailyChallenge,
		"get_study_resources":      h.getStudyResources,
		"create_assessment":        h.createAssessment,
		"update_assessment":        h.updateAssessment,
		"delete_assessment":        h.deleteAssessment,
		"list_assessments":         h.listAssessments,
		"presign_logo_upload":      h.presignLogoUpload,
	}
	return h
}

// SetupProgressionRoutes mounts the action endpoint. The action is read from
// the body's "action" field first, then from the path.
func SetupProgressionRoutes(router fiber.Router, h *Handler) {
	g := router.Group("/mock-assessment")
	g.Post("/", h.dispatch)
	g.Post("/:action", h.dispatch)
}

var errInvalidJSON = errors.New("invalid JSON in request body")

// decode unmarshals body into a T. An empty body decodes to the zero value.
func decode[T any](body []byte) (T, error) {
	var v T
	if len(body) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, errInvalidJSON
	}
	return v, nil
}

func (h *Handler) dispatch(c *fiber.Ctx) error {
	body := c.Body()

	env, err := decode[struct {
		Action string `json:"action"`
	}](body)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "INVALID_JSON", "Invalid JSON in request body")
	}
	action := env.Action
	if action == "" {
		action = c.Params("action")
	}
	if action == "" {
		return fail(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "action is required")
	}

	fn, ok := h.actions[action]
	if !ok {
		return fail(c, fiber.StatusBadRequest, "INVALID_ACTION", "Unknown action: "+action)
	}
	c.Locals(ActionLocal, action)
	return fn(c, body)
}

func (h *Handler) submitTestResult(c *fiber.Ctx, body []byte) error {
	sub, err := decode[services.Submission](body)
	if err != nil {
		return h.respondError(c, err)
	}
	out, err := h.Progress.SubmitActivity(c.UserContext(), sub)
	if err != nil {
		return h.respondError(c, err)
	}
	return okMessage(c, "Test result submitted successfully", out)
}

func (h *Handler) getUserProgress(c *fiber.Ctx, body []byte) error {
	req, err := decode[struct {
		UserID string `json:"userId"`
	}](body)
	if err != nil {
		return h.respondError(c, err)
	}
	p, err := h.Progress.ProgressView(c.UserContext(), req.UserID)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, p)
}

func (h *Handler) getTestHistory(c *fiber.Ctx, body []byte) error {
	q, err := decode[services.HistoryQuery](body)
	if err != nil {
		return h.respondError(c, err)
	}
	page, err := h.Progress.GetTestHistory(c.UserContext(), q)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, page)
}

func (h *Handler) getLeaderboard(c *fiber.Ctx, body []byte) error {
	q, err := decode[services.LeaderboardQuery](body)
	if err != nil {
		return h.respondError(c, err)
	}
	page, err := h.Leaderboard.GetLeaderboard(c.UserContext(), q)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, page)
}

func (h *Handler) getDailyChallenge(c *fiber.Ctx, body []byte) error {
	req, err := decode[struct {
		UserID string `json:"userId"`
		Date   string `json:"date"`
	}](body)
	if err != nil {
		return h.respondError(c, err)
	}
	view, err := h.Challenges.GetDailyChallenge(c.UserContext(), req.UserID, req.Date)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, view)
}

func (h *Handler) completeDailyChallenge(c *fiber.Ctx, body []byte) error {
	in, err := decode[services.ChallengeCompletion](body)
	if err != nil {
		return h.respondError(c, err)
	}
	out, err := h.Challenges.CompleteDailyChallenge(c.UserContext(), in)
	if err != nil {
		return h.respondError(c, err)
	}
	return okMessage(c, "Daily challenge completed", out)
}

func (h *Handler) getStudyResources(c *fiber.Ctx, body []byte) error {
	f, err := decode[services.ResourceFilter](body)
	if err != nil {
		return h.respondError(c, err)
	}
	resources, err := h.Assessments.GetStudyResources(c.UserContext(), f)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.Map{"resources": resources, "count": len(resources)})
}
