package authapi

import "time"

type loginRequest struct {
	AdmissionNumber string `json:"admission_number"`
	Password        string `json:"password"`
}

type registerRequest struct {
	AdmissionNumber string  `json:"admission_number"`
	DisplayName     *string `json:"display_name"`
	Password        string  `json:"password"`
}

type passwordChangeRequest struct {
	AdmissionNumber string `json:"admission_number"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type userResponse struct {
	ID              int64     `json:"id"`
	AdmissionNumber string    `json:"admission_number"`
	DisplayName     *string   `json:"display_name"`
	Points          int64     `json:"points"`
	CreatedAt       time.Time `json:"created_at"`
}

type loginResponse struct {
	User userResponse `json:"user"`
}

type registerResponse struct {
	User userResponse `json:"user"`
}

type okResponse struct {
	OK bool `json:"ok"`
}
