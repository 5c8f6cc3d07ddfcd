package http

type RunResponse struct {
	Sent  int    `json:"sent"`
	Total int    `json:"total"`
	Date  string `json:"date"`
}
