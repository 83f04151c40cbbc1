package router

import (
	"echoloom-api/core/middleware"
	"echoloom-api/modules/meeting/controller"

	"github.com/labstack/echo/v4"
)

// MeetingRouter handles meeting routes
type MeetingRouter struct {
	MeetingController *controller.MeetingController
}

// NewMeetingRouter creates a new router
func NewMeetingRouter(meetingController *controller.MeetingController) *MeetingRouter {
	return &MeetingRouter{
		MeetingController: meetingController,
	}
}

// Setup registers meeting routes
func (r *MeetingRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	private := v1.Group("/private/meetings", mw.AuthMiddleware())
	private.POST("", r.MeetingController.CreateMeeting)
	private.GET("", r.MeetingController.ListMyMeetings)
	private.GET("/:id", r.MeetingController.GetMeeting)
	private.PUT("/:id", r.MeetingController.UpdateMeeting)
	private.DELETE("/:id", r.MeetingController.DeleteMeeting)

	private.POST("/:id/participants", r.MeetingController.InviteParticipants)
	private.DELETE("/:id/participants/:email", r.MeetingController.RemoveParticipant)

	private.POST("/:id/join", r.MeetingController.Join)
	private.DELETE("/:id/history", r.MeetingController.DetachFromHistory)

	// Guest join needs no account, only an invited email.
	public := v1.Group("/public/meetings")
	public.POST("/:id/guest-join", r.MeetingController.GuestJoin)
}
