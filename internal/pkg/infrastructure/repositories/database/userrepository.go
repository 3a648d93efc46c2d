package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrUserNotFound = fmt.Errorf("user not found")
var ErrUserAlreadyExists = fmt.Errorf("user already exists")

type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByID(ctx context.Context, userID int) (User, error)
	Exists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user *User) error
	UpdateProfile(ctx context.Context, username, displayName, email string) error
	UpdatePassword(ctx context.Context, userID int, hashed string) error
	SetUserType(ctx context.Context, userID int, userType string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	var user User

	result := r.db.WithContext(ctx).Where(&User{Username: username}).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, result.Error
	}

	return user, nil
}

func (r *userRepository) GetByID(ctx context.Context, userID int) (User, error) {
	var user User

	result := r.db.WithContext(ctx).First(&user, "user_id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, result.Error
	}

	return user, nil
}

func (r *userRepository) Exists(ctx context.Context, username string) (bool, error) {
	var count int64

	result := r.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}

	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *User) error {
	exists, err := r.Exists(ctx, user.Username)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserAlreadyExists
	}

	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) UpdateProfile(ctx context.Context, username, displayName, email string) error {
	result := r.db.WithContext(ctx).Model(&User{}).
		Where("username = ?", username).
		Updates(map[string]any{"display_name": displayName, "email": email})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *userRepository) SetUserType(ctx context.Context, userID int, userType string) error {
	result := r.db.WithContext(ctx).Model(&User{}).
		Where("user_id = ?", userID).
		Update("user_type", userType)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID int, hashed string) error {
	result := r.db.WithContext(ctx).Model(&User{}).
		Where("user_id = ?", userID).
		Update("password", hashed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}
