// Package model holds the GORM table definitions of the flight recorder.
package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Flight{},
	&FlightTick{},
	&PhaseChange{},
	&TargetLock{},
}

// Flight is one run of a guidance program.
type Flight struct {
	ID          uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	ProgramName string         `json:"programName" gorm:"size:64;index:idx_flight_program"`
	StartTime   time.Time      `json:"startTime"`
	EndTime     *time.Time     `json:"endTime" gorm:"default:NULL"`  // set when the flight is closed
	Settings    datatypes.JSON `json:"settings" gorm:"default:'{}'"` // tuning snapshot
}

func (*Flight) TableName() string {
	return "flights"
}

// FlightTick is the telemetry of one guidance tick.
type FlightTick struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	FlightID     uint       `json:"flightId" gorm:"index:idx_flighttick_flight_id"`
	Flight       Flight     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:FlightID;"`
	Time         time.Time  `json:"time"`
	Tick         uint64     `json:"tick" gorm:"index:idx_flighttick_tick"`
	Phase        string     `json:"phase" gorm:"size:32"`
	Position     geom.Point `json:"position"` // XYZ, world frame
	Target       geom.Point `json:"target"`   // XYZ, empty when there was no target
	Distance     float64    `json:"distance"`
	Traveled     float64    `json:"traveled"`
	BearingError float64    `json:"bearingError"`
	Yaw          float32    `json:"yaw"`
	Pitch        float32    `json:"pitch"`
	Roll         float32    `json:"roll"`
	Locked       bool       `json:"locked" gorm:"default:false"`
	Thrust       float32    `json:"thrust"`
	Status       string     `json:"status" gorm:"size:128"`
}

func (*FlightTick) TableName() string {
	return "flight_ticks"
}

// PhaseChange marks a state machine transition.
type PhaseChange struct {
	ID        uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	FlightID  uint       `json:"flightId" gorm:"index:idx_phasechange_flight_id"`
	Flight    Flight     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:FlightID;"`
	Time      time.Time  `json:"time"`
	Tick      uint64     `json:"tick"`
	FromPhase string     `json:"from" gorm:"size:32"`
	ToPhase   string     `json:"to" gorm:"size:32"`
	Position  geom.Point `json:"position"`
}

func (*PhaseChange) TableName() string {
	return "phase_changes"
}

// TargetLock is a camera raycast hit reported by the aiming program.
type TargetLock struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	FlightID     uint       `json:"flightId" gorm:"index:idx_targetlock_flight_id"`
	Flight       Flight     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:FlightID;"`
	Time         time.Time  `json:"time"`
	Name         string     `json:"name" gorm:"size:128"`
	Type         string     `json:"type" gorm:"size:32"`
	Relationship string     `json:"relationship" gorm:"size:32"`
	Position     geom.Point `json:"position"`
	Distance     float64    `json:"distance"`
}

func (*TargetLock) TableName() string {
	return "target_locks"
}
