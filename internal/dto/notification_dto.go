package dto

import "companion-be/internal/model"

type NotificationListResponse struct {
	Items  []model.Notification `json:"items"`
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}
