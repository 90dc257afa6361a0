package model

// UserRole 平台角色。认证由外部服务负责，这里只用于令牌里的角色门禁。
type UserRole string

const (
	Admin     UserRole = "admin"
	Manager   UserRole = "manager"
	Teacher   UserRole = "teacher"
	Methodist UserRole = "methodist"
	Observer  UserRole = "observer"
)
