package database

import (
	"fmt"
	"log"

	"school_test_backend/internal/config"
	"school_test_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// shouldMigrate release 模式默认跳过自动迁移，-migrate 标志强制执行
func shouldMigrate(mode string, force bool) bool {
	return mode != "release" || force
}

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.Charset,
		cfg.Database.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if !shouldMigrate(cfg.Server.Mode, cfg.ForceMigrate) {
		return db, nil
	}

	err = db.AutoMigrate(
		&model.Subject{},
		&model.Student{},
		&model.Group{},
		&model.StudentGroup{},
		&model.GroupSubjectConfig{},
		&model.StudentTestConfig{},
		&model.BlockTest{},
		&model.StudentVariant{},
		&model.TestResult{},
	)
	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 默认学科（空库时初始化）
	var count int64
	db.Model(&model.Subject{}).Count(&count)
	if count == 0 {
		defaultSubjects := []model.Subject{
			{NameUz: "Matematika", NameRu: "Математика"},
			{NameUz: "Fizika", NameRu: "Физика"},
			{NameUz: "Kimyo", NameRu: "Химия"},
			{NameUz: "Biologiya", NameRu: "Биология"},
			{NameUz: "Ona tili", NameRu: "Родной язык"},
			{NameUz: "Ingliz tili", NameRu: "Английский язык"},
			{NameUz: "Tarix", NameRu: "История"},
		}
		for _, s := range defaultSubjects {
			db.Create(&s)
		}
	}

	return db, nil
}
