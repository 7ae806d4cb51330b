package models

// Message 私信表（仅收发双方可见，不写入公共事件日志）
type Message struct {
	BaseModel
	SenderID    string `gorm:"size:64;not null;index" json:"sender_id"`
	RecipientID string `gorm:"size:64;not null;index" json:"recipient_id"`
	Content     string `gorm:"size:2000;not null" json:"content"`
	Read        bool   `gorm:"not null;default:false" json:"read"`
}

// TableName 指定Message表名
func (Message) TableName() string {
	return "messages"
}
