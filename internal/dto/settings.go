package dto

// UpdateScheduleConfigRequest replaces the planning parameters.
type UpdateScheduleConfigRequest struct {
	Days            []string `json:"days" validate:"required,min=1,dive,required"`
	Rooms           []string `json:"rooms" validate:"required,min=1,dive,required"`
	DayStart        string   `json:"dayStart" validate:"required"`
	DayEnd          string   `json:"dayEnd" validate:"required"`
	BachelorMinutes int      `json:"bachelorMinutes" validate:"required,min=5,max=240"`
	MasterMinutes   int      `json:"masterMinutes" validate:"required,min=5,max=240"`
}

// RoomMappingRequest binds a competence area to its preferred rooms.
type RoomMappingRequest struct {
	CompetenceArea string   `json:"competenceArea" validate:"required"`
	Rooms          []string `json:"rooms" validate:"required,min=1,dive,required"`
}
