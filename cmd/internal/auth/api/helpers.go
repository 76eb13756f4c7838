package authapi

import "scholarbridge/cmd/identity"

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:              u.ID,
		AdmissionNumber: u.AdmissionNumber,
		DisplayName:     u.DisplayName,
		Points:          u.Points,
		CreatedAt:       u.CreatedAt,
	}
}
