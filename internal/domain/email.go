package domain

import "time"

// Email 表示外部投递进程写入的一封邮件，本服务只读。
type Email struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MessageFrom string    `json:"messageFrom" gorm:"type:varchar(255)"`
	MessageTo   string    `json:"messageTo" gorm:"type:varchar(255);index;not null"`
	Subject     string    `json:"subject" gorm:"type:varchar(500)"`
	Text        string    `json:"text,omitempty" gorm:"type:text"`
	HTML        string    `json:"html,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
}

// TableName 固定表名，与投递进程共享。
func (Email) TableName() string {
	return "emails"
}

// EmailSummary 是邮件列表查询的投影。
type EmailSummary struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary 投影为列表视图
func (e Email) Summary() EmailSummary {
	return EmailSummary{ID: e.ID, Subject: e.Subject, CreatedAt: e.CreatedAt}
}

// EmailView 是返回给前端的邮件条目，CreatedAt 为相对时间描述（如 "3 minutes ago"）。
type EmailView struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	CreatedAt string `json:"createdAt"`
}
