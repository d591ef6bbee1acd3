package implementation

import (
	"context"
	"time"

	"companion-be/internal/model"
	"companion-be/internal/repository/contract"
	"companion-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepositoryImpl struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) contract.NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

func (r *NotificationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, s := range specs {
		db = s.Apply(db)
	}
	return db
}

func (r *NotificationRepositoryImpl) notifications(ctx context.Context, specs ...specification.Specification) *gorm.DB {
	return r.applySpecifications(r.db.WithContext(ctx).Model(&model.Notification{}), specs...)
}

func (r *NotificationRepositoryImpl) CreateNotification(ctx context.Context, notification *model.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *NotificationRepositoryImpl) GetNotificationsByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	owner := specification.UserOwnedBy{UserID: userID}

	var total int64
	if err := r.notifications(ctx, owner).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []model.Notification
	err := r.notifications(ctx,
		owner,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Limit{Limit: limit},
	).Offset(offset).Find(&items).Error
	return items, total, err
}

func (r *NotificationRepositoryImpl) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.notifications(ctx,
		specification.UserOwnedBy{UserID: userID},
		specification.UnreadNotifications{},
	).Count(&count).Error
	return count, err
}

// MarkAsRead only touches rows owned by userID; a foreign id reads as not found.
func (r *NotificationRepositoryImpl) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	result := r.notifications(ctx,
		specification.ByID{ID: notificationID},
		specification.UserOwnedBy{UserID: userID},
	).Updates(readUpdate())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return contract.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepositoryImpl) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return r.notifications(ctx,
		specification.UserOwnedBy{UserID: userID},
		specification.UnreadNotifications{},
	).Updates(readUpdate()).Error
}

func (r *NotificationRepositoryImpl) GetNotificationTypeByCode(ctx context.Context, code string) (*model.NotificationType, error) {
	var notifType model.NotificationType
	db := r.applySpecifications(r.db.WithContext(ctx), specification.ActiveNotificationType{Code: code})
	if err := db.First(&notifType).Error; err != nil {
		return nil, err
	}
	return &notifType, nil
}

func (r *NotificationRepositoryImpl) GetUsersByRole(ctx context.Context, role string) ([]model.User, error) {
	var users []model.User
	err := r.applySpecifications(r.db.WithContext(ctx), specification.ByUserRole{Role: role}).Find(&users).Error
	return users, err
}

func readUpdate() map[string]interface{} {
	return map[string]interface{}{
		"is_read": true,
		"read_at": time.Now(),
	}
}
