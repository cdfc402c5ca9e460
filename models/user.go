package models

import (
	"context"
	"time"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/utils"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email" binding:"required"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      UserRole  `gorm:"type:enum('Admin','Vendor');not null;default:'Admin'" json:"role"`
	VendorId  int       `gorm:"index;default:null" json:"vendor_id"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=8"`
	Role     UserRole `json:"role" binding:"required"`
	VendorId int      `json:"vendor_id"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	if input.Role != UserRoleAdmin && input.Role != UserRoleVendor {
		return nil, utils.NewValidationError("role", "must be Admin or Vendor")
	}
	if input.Role == UserRoleVendor {
		if err := utils.ValidateResourceId[Vendor](ctx, input.VendorId); err != nil {
			return nil, utils.NewValidationError("vendor_id", "vendor not found")
		}
	}
	if err := utils.ValidateUnique[User](ctx, "email", input.Email, 0); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Name:     input.Name,
		Email:    input.Email,
		Password: string(hashed),
		Role:     input.Role,
		VendorId: input.VendorId,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return &user, nil
}

// Login verifies credentials and returns a signed token.
func Login(ctx context.Context, input *LoginInput) (string, *User, error) {
	var user User
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("email = ?", input.Email).First(&user).Error; err != nil {
		return "", nil, utils.ErrorRecordNotFound
	}
	if user.IsActive != nil && !*user.IsActive {
		return "", nil, utils.NewValidationError("email", "account is disabled")
	}
	if err := utils.ComparePassword(user.Password, input.Password); err != nil {
		return "", nil, utils.NewValidationError("password", "invalid credentials")
	}

	token, err := utils.JwtGenerate(user.ID, user.Name, string(user.Role), user.VendorId)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}
