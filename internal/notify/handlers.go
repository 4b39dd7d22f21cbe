package notify

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-course/internal/common"
	"github.com/noah-isme/backend-course/internal/course"
)

// Handler exposes the internal course-email dispatch endpoint. The payment
// callback normally drives the trigger directly; this endpoint exists for
// manual resends and for decoupled deployments.
type Handler struct {
	Trigger *Trigger
}

type sendReq struct {
	CustomerEmail string `json:"customerEmail"`
	CourseType    string `json:"courseType"`
	OrderID       string `json:"orderId"`
	Language      string `json:"language"`
}

type sendResp struct {
	Success   bool   `json:"success"`
	Duplicate bool   `json:"duplicate,omitempty"`
	OrderID   string `json:"orderId"`
}

// SendCourseEmail performs one idempotent dispatch attempt.
func (h *Handler) SendCourseEmail(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Trigger == nil {
		common.JSONError(w, http.StatusInternalServerError, "CONFIG_ERROR", "notification handler unavailable", nil)
		return
	}
	var req sendReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body", nil)
		return
	}
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.CustomerEmail == "" || req.CourseType == "" || req.OrderID == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "customerEmail, courseType and orderId are required", nil)
		return
	}
	info, ok := course.Lookup(req.CourseType)
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unknown course type", nil)
		return
	}
	res, err := h.Trigger.Notify(r.Context(), req.OrderID, req.CustomerEmail, info, course.ParseLocale(req.Language))
	if err != nil {
		if app, isApp := common.AsAppError(err); isApp {
			common.JSONError(w, app.HTTPStatus, app.Code, app.Message, nil)
			return
		}
		common.JSONError(w, http.StatusBadGateway, "DISPATCH_FAILED", "failed to send email", nil)
		return
	}
	common.JSON(w, http.StatusOK, sendResp{Success: true, Duplicate: res.Duplicate, OrderID: req.OrderID})
}
