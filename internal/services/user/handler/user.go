package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"stockroom-system/internal/database/models"
	"stockroom-system/internal/utils"
)

const (
	USER_CACHE_PREFIX   = "user:"
	USER_LIST_CACHE_KEY = "user:list"
	CACHE_TTL_SHORT     = 5 * time.Minute
	CACHE_TTL_MEDIUM    = 30 * time.Minute
)

var (
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("user not found")
	ErrEmailTaken     = errors.New("email is already registered")
	ErrBadCredentials = errors.New("invalid email or password")
)

type UserHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewUserHandler(db *gorm.DB, redisClient *redis.Client) *UserHandler {
	return &UserHandler{
		db:    db,
		redis: redisClient,
	}
}

func (s *UserHandler) InvalidateUserCaches(ctx context.Context, ids ...int64) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, USER_LIST_CACHE_KEY)

	for _, id := range ids {
		cacheKey := fmt.Sprintf("%s%d", USER_CACHE_PREFIX, id)
		_ = s.redis.Del(ctx, cacheKey)
	}
}

func (s *UserHandler) requireAdmin(actor models.User) error {
	if !actor.IsAdmin {
		return fmt.Errorf("accessing admin operation: %w", ErrForbidden)
	}
	return nil
}

// Register creates an account. Only admins add accounts; self-service
// signup is not part of this system.
func (s *UserHandler) Register(ctx context.Context, actor models.User, firstName, lastName, email, password string) (*models.User, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	var existing models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  string(pwHash),
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	s.InvalidateUserCaches(ctx)

	return &user, nil
}

// Authenticate checks the credentials and issues a session token.
func (s *UserHandler) Authenticate(ctx context.Context, email, password string) (*models.User, string, time.Time, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, "", time.Time{}, ErrBadCredentials
		}
		return nil, "", time.Time{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", time.Time{}, ErrBadCredentials
	}

	token, exp, err := utils.GenerateToken(user.ID, user.Email, 24*time.Hour)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	return &user, token, exp, nil
}

func (s *UserHandler) GetUser(ctx context.Context, actor models.User, userID int64) (*models.User, error) {
	if userID != actor.ID {
		if err := s.requireAdmin(actor); err != nil {
			return nil, err
		}
	}

	var user models.User
	if err := s.db.WithContext(ctx).Preload("Requests").First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserHandler) ListUsers(ctx context.Context, actor models.User) ([]models.User, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	if s.redis != nil {
		cached, err := s.redis.Get(ctx, USER_LIST_CACHE_KEY).Result()
		if err == nil {
			var users []models.User
			if err := json.Unmarshal([]byte(cached), &users); err == nil {
				return users, nil
			}
		}
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(users); err == nil {
			_ = s.redis.Set(ctx, USER_LIST_CACHE_KEY, data, CACHE_TTL_MEDIUM)
		}
	}

	return users, nil
}

// UpdateProfile edits the actor's own name, email and picture filename after
// re-checking their password.
func (s *UserHandler) UpdateProfile(ctx context.Context, actor models.User, firstName, lastName, email, picture, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, actor.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user %d: %w", actor.ID, ErrNotFound)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}

	user.FirstName = firstName
	user.LastName = lastName
	user.Email = email
	if picture != "" {
		user.Picture = picture
	}

	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, err
	}

	s.InvalidateUserCaches(ctx, user.ID)

	return &user, nil
}

// UpdatePassword changes a user's password. Admins may change any account,
// anyone else only their own; either way the ACTOR's current password is the
// one re-checked, matching the original flow.
func (s *UserHandler) UpdatePassword(ctx context.Context, actor models.User, userID int64, prevPassword, newPassword string) error {
	if userID != actor.ID {
		if err := s.requireAdmin(actor); err != nil {
			return err
		}
	}

	var self models.User
	if err := s.db.WithContext(ctx).First(&self, actor.ID).Error; err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(self.Password), []byte(prevPassword)); err != nil {
		return ErrBadCredentials
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return err
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(pwHash)

	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return err
	}

	s.InvalidateUserCaches(ctx, user.ID)

	return nil
}

// DeleteAccount removes a user and all of their requests in one transaction.
// The user is the sole owner of their requests, so the rows go with them.
func (s *UserHandler) DeleteAccount(ctx context.Context, actor models.User, userID int64) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return err
	}

	if err := tx.Where("user_id = ?", user.ID).Delete(&models.Request{}).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Delete(&user).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	s.InvalidateUserCaches(ctx, userID)

	return nil
}

// ToggleAdmin flips the admin flag on the target account.
func (s *UserHandler) ToggleAdmin(ctx context.Context, actor models.User, userID int64) (*models.User, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, err
	}

	user.IsAdmin = !user.IsAdmin

	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, err
	}

	s.InvalidateUserCaches(ctx, user.ID)

	return &user, nil
}

// ToggleSuperuser flips BOTH the superuser and the admin flag. The coupling
// is inherited behavior that downstream admin tooling depends on; do not
// "fix" it to flip only one flag.
func (s *UserHandler) ToggleSuperuser(ctx context.Context, actor models.User, userID int64) (*models.User, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, err
	}

	user.IsAdmin = !user.IsAdmin
	user.IsSuperUser = !user.IsSuperUser

	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, err
	}

	s.InvalidateUserCaches(ctx, user.ID)

	return &user, nil
}
