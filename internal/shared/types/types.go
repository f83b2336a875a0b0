package types

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 represents a position or vector in world space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Mgl converts a wire vector to the math type used by the simulation.
func (v Vec3) Mgl() mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// FromMgl converts a simulation vector to its wire form.
func FromMgl(v mgl64.Vec3) Vec3 {
	return Vec3{X: v.X(), Y: v.Y(), Z: v.Z()}
}

// DriveInput is the per-frame control intent for one vehicle.
type DriveInput struct {
	Forward  bool   `json:"forward"`
	Brake    bool   `json:"brake"`
	Left     bool   `json:"left"`
	Right    bool   `json:"right"`
	Drift    bool   `json:"drift"`
	Boost    bool   `json:"boost"`
	Sequence uint64 `json:"sequence"`
	ClientMS int64  `json:"client_ms"`
}

// SessionStats accumulates per-vehicle records over one race session.
type SessionStats struct {
	PeakSpeedKPH    float64 `json:"peak_speed_kph"`
	LongestDriftSec float64 `json:"longest_drift_sec"`
	Collisions      int     `json:"collisions"`
	Pickups         int     `json:"pickups"`
}

// VehicleTelemetry is the authoritative replicated state for one vehicle.
type VehicleTelemetry struct {
	ID            string       `json:"id"`
	Archetype     string       `json:"archetype"`
	Bot           bool         `json:"bot"`
	Position      Vec3         `json:"position"`
	HeadingDeg    float64      `json:"heading_deg"`
	SpeedKPH      float64      `json:"speed_kph"`
	Nitro         float64      `json:"nitro"`
	NitroPending  float64      `json:"nitro_pending"`
	Boosting      bool         `json:"boosting"`
	Lap           int          `json:"lap"`
	ProgressIndex float64      `json:"progress_index"`
	ProgressFrac  float64      `json:"progress_frac"`
	SteerRatio    float64      `json:"steer_ratio"`
	DriftBlend    float64      `json:"drift_blend"`
	Drifting      bool         `json:"drifting"`
	DamagePct     float64      `json:"damage_pct"`
	WallSide      int          `json:"wall_side"` // -1 left, 1 right, 0 none
	Wrecked       bool         `json:"wrecked"`
	WreckSecLeft  float64      `json:"wreck_sec_left,omitempty"`
	Stats         SessionStats `json:"stats"`
}

// RaceSnapshot is replicated to all clients.
type RaceSnapshot struct {
	RaceID     string             `json:"race_id"`
	Seed       int64              `json:"seed"`
	Theme      string             `json:"theme"`
	Tick       uint64             `json:"tick"`
	SimTimeSec float64            `json:"sim_time_sec"`
	TotalLaps  int                `json:"total_laps"`
	Paused     bool               `json:"paused"`
	Finished   bool               `json:"finished"`
	WinnerID   string             `json:"winner_id,omitempty"`
	Vehicles   []VehicleTelemetry `json:"vehicles"`
	Events     []GameplayEvent    `json:"events"`
}

// DecorationMarker describes a prop placed relative to a track segment.
type DecorationMarker struct {
	Symbol      string  `json:"symbol"`
	Offset      float64 `json:"offset"` // signed lateral offset from centerline
	Size        float64 `json:"size"`
	RotationDeg float64 `json:"rotation_deg"`
}

// TrackPoint is one segment sample in the track initialization payload.
type TrackPoint struct {
	Index      int               `json:"index"`
	Center     Vec3              `json:"center"`
	HeadingDeg float64           `json:"heading_deg"`
	Decoration *DecorationMarker `json:"decoration,omitempty"`
}

// TrackInit is emitted once at race start for minimap/loading consumers.
type TrackInit struct {
	Seed     int64        `json:"seed"`
	Theme    string       `json:"theme"`
	Width    float64      `json:"width"`
	Count    int          `json:"count"`
	Segments []TrackPoint `json:"segments"`
}

// GameplayEvent tracks state changes worth UI/audio feedback.
type GameplayEvent struct {
	Type       string  `json:"type"` // wall_impact|pickup|lap|wreck|respawn|race_finish
	VehicleID  string  `json:"vehicle_id,omitempty"`
	Position   Vec3    `json:"position"`
	SpeedKPH   float64 `json:"speed_kph,omitempty"`
	Side       int     `json:"side,omitempty"`
	Lap        int     `json:"lap,omitempty"`
	OccurredMS int64   `json:"occurred_ms"`
}

// CameraPose is the replicated chase camera state for the driving client.
type CameraPose struct {
	Position Vec3    `json:"position"`
	LookAt   Vec3    `json:"look_at"`
	FOVDeg   float64 `json:"fov_deg"`
}

// ClientEnvelope is sent from client to server.
type ClientEnvelope struct {
	Type      string      `json:"type"` // input|pause|ping
	Input     *DriveInput `json:"input,omitempty"`
	Pause     *bool       `json:"pause,omitempty"`
	PingNonce int64       `json:"ping_nonce,omitempty"`
}

// ServerEnvelope is sent from server to client.
type ServerEnvelope struct {
	Type      string        `json:"type"` // welcome|track_init|state|pong|notice
	PlayerID  string        `json:"player_id,omitempty"`
	Race      *RaceSnapshot `json:"race,omitempty"`
	Track     *TrackInit    `json:"track,omitempty"`
	Camera    *CameraPose   `json:"camera,omitempty"`
	PongNonce int64         `json:"pong_nonce,omitempty"`
	ServerMS  int64         `json:"server_ms,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// RacePlan is one rotation assignment: the next race the server should host.
type RacePlan struct {
	RaceID      string    `json:"race_id"`
	Seed        int64     `json:"seed"`
	Laps        int       `json:"laps"`
	GridSize    int       `json:"grid_size"`
	RequestedBy string    `json:"requested_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RotationRequest is the operator payload for queueing a race plan.
type RotationRequest struct {
	Seed        int64  `json:"seed"`
	Laps        int    `json:"laps"`
	GridSize    int    `json:"grid_size"`
	RequestedBy string `json:"requested_by"`
}
