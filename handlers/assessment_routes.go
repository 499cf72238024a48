package handlers

import (
	"mock-assessment-service/services"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) createAssessment(c *fiber.Ctx, body []byte) error {
	in, err := decode[services.AssessmentInput](body)
	if err != nil {
		return h.respondError(c, err)
	}
	a, err := h.Assessments.Create(c.UserContext(), in)
	if err != nil {
		return h.respondError(c, err)
	}
	return okMessage(c, "Assessment created successfully", fiber.Map{"assessment": a})
}

func (h *Handler) updateAssessment(c *fiber.Ctx, body []byte) error {
	in, err := decode[services.AssessmentInput](body)
	if err != nil {
		return h.respondError(c, err)
	}
	a, err := h.Assessments.Update(c.UserContext(), in)
	if err != nil {
		return h.respondError(c, err)
	}
	return okMessage(c, "Assessment updated successfully", fiber.Map{"assessment": a})
}

func (h *Handler) deleteAssessment(c *fiber.Ctx, body []byte) error {
	ref, err := decode[services.AssessmentRef](body)
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.Assessments.Delete(c.UserContext(), ref); err != nil {
		return h.respondError(c, err)
	}
	return okMessage(c, "Assessment deleted successfully", nil)
}

func (h *Handler) listAssessments(c *fiber.Ctx, body []byte) error {
	f, err := decode[services.AssessmentFilter](body)
	if err != nil {
		return h.respondError(c, err)
	}
	list, err := h.Assessments.List(c.UserContext(), f)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.Map{"assessments": list, "count": len(list)})
}

func (h *Handler) getQuestions(c *fiber.Ctx, body []byte) error {
	ref, err := decode[services.AssessmentRef](body)
	if err != nil {
		return h.respondError(c, err)
	}
	questions, err := h.Assessments.GetQuestions(c.UserContext(), ref)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, questions)
}

func (h *Handler) presignLogoUpload(c *fiber.Ctx, body []byte) error {
	req, err := decode[services.LogoUploadRequest](body)
	if err != nil {
		return h.respondError(c, err)
	}
	upload, err := h.Assessments.PresignLogoUpload(c.UserContext(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, upload)
}
