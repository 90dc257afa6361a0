package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// GroupLetters 班级分组字母 A-F
var GroupLetters = []string{"A", "B", "C", "D", "E", "F"}

// IsGroupLetter 校验分组字母是否合法
func IsGroupLetter(s string) bool {
	for _, l := range GroupLetters {
		if s == l {
			return true
		}
	}
	return false
}
