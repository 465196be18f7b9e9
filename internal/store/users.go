package store

import (
	"fmt"

	"slotswapper-backend/internal/model"
)

func (t *gormTx) CreateUser(user *model.User) error {
	if err := t.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (t *gormTx) UserByID(id int64) (*model.User, error) {
	var user model.User
	if err := t.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (t *gormTx) UserByEmail(email string) (*model.User, error) {
	var user model.User
	if err := t.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (t *gormTx) UserNames(ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var users []model.User
	if err := t.db.Select("id", "name").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load user names: %w", err)
	}
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}
