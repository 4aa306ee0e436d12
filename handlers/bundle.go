package handlers

import (
	deviceRepoPkg "medichat/database/repository/device"
	moderatorRepoPkg "medichat/database/repository/moderator"
	"medichat/services/command"
	"medichat/services/dispatch"
	"medichat/services/lease"
	"medichat/services/numbercheck"
	"medichat/services/pairing"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct so route wiring
// stays in one place.
type HandlerBundle struct {
	ModeratorRepo moderatorRepoPkg.ModeratorRepository
	DeviceRepo    deviceRepoPkg.DeviceRepository

	// Staff endpoints
	LoginModerator  gin.HandlerFunc
	LogoutModerator gin.HandlerFunc
	StartPairing    gin.HandlerFunc
	ListDevices     gin.HandlerFunc
	RevokeDevice    gin.HandlerFunc
	DeleteDevice    gin.HandlerFunc
	SendMessage     gin.HandlerFunc
	CheckNumber     gin.HandlerFunc
	GetSession      gin.HandlerFunc
	PauseSending    gin.HandlerFunc
	ResumeSending   gin.HandlerFunc
	ForceRelease    gin.HandlerFunc

	// Extension endpoints
	PairDevice      gin.HandlerFunc
	AcquireLease    gin.HandlerFunc
	Heartbeat       gin.HandlerFunc
	ReleaseLease    gin.HandlerFunc
	PollCommands    gin.HandlerFunc
	AckCommand      gin.HandlerFunc
	CompleteCommand gin.HandlerFunc
	FailCommand     gin.HandlerFunc
}

// NewHandlerBundle assembles handlers over the given services.
func NewHandlerBundle(
	moderators moderatorRepoPkg.ModeratorRepository,
	devices deviceRepoPkg.DeviceRepository,
	pairingSvc pairing.PairingService,
	leaseSvc lease.LeaseService,
	commandSvc command.CommandService,
	dispatchSvc dispatch.DispatchService,
	checkSvc numbercheck.NumberCheckService,
) *HandlerBundle {
	return &HandlerBundle{
		ModeratorRepo: moderators,
		DeviceRepo:    devices,

		LoginModerator:  LoginModeratorHandler(moderators),
		LogoutModerator: LogoutModeratorHandler(moderators),
		StartPairing:    StartPairingHandler(pairingSvc),
		ListDevices:     ListDevicesHandler(pairingSvc),
		RevokeDevice:    RevokeDeviceHandler(pairingSvc),
		DeleteDevice:    DeleteDeviceHandler(pairingSvc),
		SendMessage:     SendMessageHandler(dispatchSvc),
		CheckNumber:     CheckNumberHandler(checkSvc),
		GetSession:      SessionHandler(leaseSvc),
		PauseSending:    PauseSendingHandler(leaseSvc),
		ResumeSending:   ResumeSendingHandler(leaseSvc),
		ForceRelease:    ForceReleaseHandler(leaseSvc),

		PairDevice:      PairDeviceHandler(pairingSvc),
		AcquireLease:    AcquireLeaseHandler(leaseSvc),
		Heartbeat:       HeartbeatHandler(leaseSvc),
		ReleaseLease:    ReleaseLeaseHandler(leaseSvc),
		PollCommands:    PollCommandsHandler(commandSvc),
		AckCommand:      AckCommandHandler(commandSvc),
		CompleteCommand: CompleteCommandHandler(commandSvc),
		FailCommand:     FailCommandHandler(commandSvc),
	}
}
