package models

import "time"

// Request status values. Requests are created Pending and moved to Accepted
// or Rejected exactly once by an admin decision.
const (
	RequestPending  int32 = 0
	RequestAccepted int32 = 1
	RequestRejected int32 = -1
)

type User struct {
	ID          int64      `gorm:"primaryKey;autoIncrement"`
	FirstName   string     `gorm:"size:100;not null"`
	LastName    string     `gorm:"size:100;not null"`
	Email       string     `gorm:"uniqueIndex;not null"`
	Password    string     `gorm:"not null"`
	Picture     string     `gorm:"size:100;default:'default.jpg'"`
	IsAdmin     bool       `gorm:"default:false"`
	IsSuperUser bool       `gorm:"default:false"`
	CreatedAt   *time.Time `gorm:"autoCreateTime"`
	UpdatedAt   *time.Time `gorm:"autoUpdateTime"`

	Requests []Request `gorm:"foreignKey:UserID"`
}

type Stock struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Item      string `gorm:"size:255;not null"`
	QtyPrev   int32  `gorm:"not null"`
	Avail     int32  `gorm:"not null"`
	QtyReq    int32  `gorm:"not null"`
	QtyPres   int32  `gorm:"not null"`
	Quota     int32  `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Requests []Request `gorm:"foreignKey:StockID"`
}

type Request struct {
	ID              int64   `gorm:"primaryKey;autoIncrement"`
	UserID          int64   `gorm:"index;not null"`
	StockID         int64   `gorm:"index;not null"`
	Qty             int32   `gorm:"not null"`
	Status          int32   `gorm:"not null;default:0"`
	UsersComment    *string `gorm:"type:text"`
	ReceivedComment *string `gorm:"type:text"`
	Received        bool    `gorm:"default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	User  *User  `gorm:"foreignKey:UserID"`
	Stock *Stock `gorm:"foreignKey:StockID"`
}
