package dto

// CreateExamRequest registers one colloquium to be scheduled.
type CreateExamRequest struct {
	StudentName    string `json:"studentName" validate:"required,min=1,max=200"`
	Degree         string `json:"degree" validate:"required,oneof=BACHELOR MASTER"`
	CompetenceArea string `json:"competenceArea" validate:"required_if=Degree BACHELOR"`
	Integrated     bool   `json:"integrated"`
	ExaminerAID    string `json:"examinerAId" validate:"required"`
	ExaminerBID    string `json:"examinerBId" validate:"required,nefield=ExaminerAID"`
}

// UpdateExamRequest mutates the editable exam fields.
type UpdateExamRequest struct {
	StudentName    *string `json:"studentName" validate:"omitempty,min=1,max=200"`
	CompetenceArea *string `json:"competenceArea"`
	Integrated     *bool   `json:"integrated"`
	ExaminerAID    *string `json:"examinerAId"`
	ExaminerBID    *string `json:"examinerBId"`
}
