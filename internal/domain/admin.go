package domain

type Stats struct {
	UsersByRole          map[UserRole]int          `json:"users_by_role"`
	UsersByStatus        map[UserStatus]int        `json:"users_by_status"`
	AppointmentsByStatus map[AppointmentStatus]int `json:"appointments_by_status"`
}
