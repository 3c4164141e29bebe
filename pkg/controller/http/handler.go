package http

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/m-mizutani/marten/pkg/model"
	"github.com/m-mizutani/marten/pkg/usecase/research"
	"github.com/m-mizutani/marten/pkg/utils/logging"
)

type analyzeRequest struct {
	Query     string `json:"query" validate:"required,max=2000"`
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}

type sessionRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}

type sessionInfo struct {
	Active  bool   `json:"active"`
	Product string `json:"product"`
}

type analyzeResponse struct {
	Result    string         `json:"result"`
	Agent     model.Category `json:"agent"`
	Timestamp string         `json:"timestamp"`
	Session   *sessionInfo   `json:"session"`
	Query     string         `json:"query"`
	FollowUp  bool           `json:"follow_up"`
	DemoMode  bool           `json:"demo_mode,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type memoryStatusResponse struct {
	Status    string `json:"status"`
	Active    bool   `json:"active"`
	Product   string `json:"product,omitempty"`
	Exchanges int    `json:"exchanges"`
}

type statusResponse struct {
	Initialized bool            `json:"initialized"`
	Sources     map[string]bool `json:"sources"`
	Message     string          `json:"message"`
}

// sessionID resolves the session of a request: body field, then header,
// then the default id.
func sessionID(c *fiber.Ctx, body string) model.SessionID {
	if id := strings.TrimSpace(body); id != "" {
		return model.SessionID(id)
	}
	if id := strings.TrimSpace(c.Get(SessionHeader)); id != "" {
		return model.SessionID(id)
	}
	return model.DefaultSessionID
}

func (s *Server) parse(c *fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return nil
}

func (s *Server) postAnalyze(c *fiber.Ctx) error {
	var req analyzeRequest
	if err := s.parse(c, &req); err != nil {
		return err
	}
	req.Query = strings.TrimSpace(req.Query)

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "Query" && verrs[0].Tag() == "required" {
			return fiber.NewError(fiber.StatusBadRequest, "Query is required")
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx := c.UserContext()
	id := sessionID(c, req.SessionID)

	var result *research.Result
	if s.uc == nil {
		logging.From(ctx).Warn("orchestrator not initialized, using demo mode")
		result = research.DemoResult(req.Query)
	} else {
		result = s.uc.AnalyzeQuery(ctx, id, req.Query)
	}

	resp := analyzeResponse{
		Result:    result.Report,
		Agent:     result.Category,
		Timestamp: s.now().Format(time.RFC3339),
		Query:     req.Query,
		FollowUp:  result.FollowUp,
		DemoMode:  result.Demo,
	}
	if result.Session.Active {
		resp.Session = &sessionInfo{Active: true, Product: result.Session.Subject}
	}
	return c.JSON(resp)
}

func (s *Server) postClearMemory(c *fiber.Ctx) error {
	var req sessionRequest
	if err := s.parse(c, &req); err != nil {
		return err
	}
	if err := s.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if s.uc == nil {
		return c.JSON(messageResponse{Message: "Orchestrator not available"})
	}

	id := sessionID(c, req.SessionID)
	s.uc.ClearMemory(id)
	logging.From(c.UserContext()).Info("memory cleared", "session_id", id)
	return c.JSON(messageResponse{Message: "Memory cleared successfully"})
}

func (s *Server) getMemoryStatus(c *fiber.Ctx) error {
	if s.uc == nil {
		return c.JSON(memoryStatusResponse{Status: "No active session"})
	}

	st := s.uc.MemoryStatus(sessionID(c, c.Query("session_id")))
	return c.JSON(memoryStatusResponse{
		Status:    st.String(),
		Active:    st.Active,
		Product:   st.Subject,
		Exchanges: st.Exchanges,
	})
}

func (s *Server) getStatus(c *fiber.Ctx) error {
	if s.uc == nil {
		return c.JSON(statusResponse{
			Sources: map[string]bool{},
			Message: "Orchestrator not initialized",
		})
	}
	return c.JSON(statusResponse{
		Initialized: true,
		Sources:     s.uc.Sources(),
		Message:     "System operational",
	})
}
