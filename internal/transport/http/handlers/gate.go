package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AyushNetTech/GymTrack/internal/usecase"
)

// GateHandler exposes the bootstrap machine to the UI shell: the
// resolved route, deep link delivery, and the user-driven events the
// screens emit.
type GateHandler struct {
	machine *usecase.BootstrapMachine
}

// NewGateHandler builds a gate handler around the machine.
func NewGateHandler(machine *usecase.BootstrapMachine) *GateHandler {
	return &GateHandler{machine: machine}
}

// RegisterRoutes wires the gate endpoints onto the router group.
func (h *GateHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/route", h.Route)
	group.POST("/links", h.DeliverLink)
	group.POST("/profile-setup/complete", h.CompleteProfileSetup)
	group.POST("/verify-dialog/dismiss", h.DismissVerifyDialog)
	group.POST("/reset-password/complete", h.CompleteResetPassword)
	group.POST("/auth/signout", h.SignOut)
}

// Route returns the current resolved route state.
func (h *GateHandler) Route(c *gin.Context) {
	state := h.machine.State()

	c.JSON(http.StatusOK, RouteResponse{
		Route:            string(state.Route),
		ShowVerifyDialog: state.ShowVerifyDialog,
		PendingResetURL:  state.PendingResetURL,
		SignedIn:         state.Session.Present,
		UserID:           state.Session.UserID,
	})
}

// DeliverLink feeds a deep link received while running into the machine.
func (h *GateHandler) DeliverLink(c *gin.Context) {
	var req LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "url is required"})
		return
	}

	h.machine.HandleLink(req.URL)
	c.JSON(http.StatusAccepted, MessageResponse{Message: "link accepted"})
}

// CompleteProfileSetup signals that the profile-setup flow finished.
func (h *GateHandler) CompleteProfileSetup(c *gin.Context) {
	h.machine.ProfileSetupFinished()
	c.JSON(http.StatusAccepted, MessageResponse{Message: "profile setup recorded"})
}

// DismissVerifyDialog acknowledges the verification-success dialog.
func (h *GateHandler) DismissVerifyDialog(c *gin.Context) {
	h.machine.DismissVerifyDialog()
	c.JSON(http.StatusAccepted, MessageResponse{Message: "dialog dismissed"})
}

// CompleteResetPassword signals that the reset flow consumed its link.
func (h *GateHandler) CompleteResetPassword(c *gin.Context) {
	h.machine.ResetLinkHandled()
	c.JSON(http.StatusAccepted, MessageResponse{Message: "reset link handled"})
}

// SignOut ends the current session.
func (h *GateHandler) SignOut(c *gin.Context) {
	h.machine.SignOut()
	c.JSON(http.StatusAccepted, MessageResponse{Message: "sign out requested"})
}
