package portal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type store struct {
	db *gorm.DB
}

func (st store) gymBySlug(ctx context.Context, slug string) (*Gym, error) {
	var gym Gym
	if err := st.db.WithContext(ctx).Where("slug = ?", slug).First(&gym).Error; err != nil {
		return nil, err
	}
	return &gym, nil
}

func (st store) gymByID(ctx context.Context, id uuid.UUID) (*Gym, error) {
	var gym Gym
	if err := st.db.WithContext(ctx).Where("id = ?", id).First(&gym).Error; err != nil {
		return nil, err
	}
	return &gym, nil
}

func (st store) memberByEmail(ctx context.Context, gymID uuid.UUID, email string) (*Member, error) {
	var member Member
	err := st.db.WithContext(ctx).
		Where("gym_id = ? AND email = ?", gymID, email).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (st store) memberByID(ctx context.Context, gymID, memberID uuid.UUID) (*Member, error) {
	var member Member
	err := st.db.WithContext(ctx).
		Where("gym_id = ? AND id = ?", gymID, memberID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// savePIN is the plain read-then-write path. Two concurrent requests can both
// pass the cooldown check made on the row they read before either writes.
func (st store) savePIN(ctx context.Context, member *Member, encrypted string, now time.Time) error {
	updates := map[string]any{
		"portal_pin":       encrypted,
		"last_pin_sent_at": now,
	}
	if member.PortalPIN == nil {
		updates["pin_created_at"] = now
	}

	return st.db.WithContext(ctx).
		Model(&Member{}).
		Where("id = ?", member.ID).
		Updates(updates).Error
}

// savePINIfCooledDown writes only when the stored last_pin_sent_at is still
// outside the cooldown window. It reports false when another request won.
func (st store) savePINIfCooledDown(ctx context.Context, member *Member, encrypted string, now, threshold time.Time) (bool, error) {
	result := st.db.WithContext(ctx).
		Model(&Member{}).
		Where("id = ? AND (last_pin_sent_at IS NULL OR last_pin_sent_at <= ?)", member.ID, threshold).
		Updates(map[string]any{
			"pin_created_at":   gorm.Expr("CASE WHEN portal_pin IS NULL THEN ? ELSE pin_created_at END", now),
			"portal_pin":       encrypted,
			"last_pin_sent_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
