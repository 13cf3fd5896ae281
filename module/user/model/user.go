package model

import "time"

// Status values of users.status; the relay writes them when presence changes.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// User 用户主档，relay 只读：鉴权时确认用户存在。
// db tag 对应 postgres users 表，bson tag 对应 mongo user 集合。
type User struct {
	ID             string    `db:"id" bson:"user_id" json:"id"`
	Username       string    `db:"username" bson:"username" json:"username"`
	Email          string    `db:"email" bson:"email,omitempty" json:"email,omitempty"`
	Status         string    `db:"status" bson:"status,omitempty" json:"status"`
	ProfilePicture string    `db:"profile_picture" bson:"profile_picture,omitempty" json:"profile_picture,omitempty"`
	CreatedAt      time.Time `db:"created_at" bson:"created_at" json:"created_at"`
}

func (User) CollectionName() string { return "user" }

func (User) TableName() string { return "users" }
