package model

import (
	"github.com/agribotlabs/agribot/internal/model/entities"
	"github.com/agribotlabs/agribot/internal/model/messages"
)

// Aliases exposing the common types to the services.

type (
	Prescription     = entities.Prescription
	Zone             = entities.Zone
	Mission          = entities.Mission
	ZoneMission      = entities.ZoneMission
	Waypoint         = entities.Waypoint
	TelemetryMessage = messages.TelemetryMessage
	ComplianceAlert  = messages.ComplianceAlert
)

const (
	MissionDraft = entities.MissionDraft
	MissionReady = entities.MissionReady
)
