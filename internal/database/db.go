package database

import (
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"simutu-ng/internal/models"
)

var DB *gorm.DB

// Options нужны Init помимо DSN
type Options struct {
	AdminUsername string
	AdminPassword string
	SeedDemo      bool
	Logger        *logrus.Logger
}

func Init(dsn string, opts Options) *gorm.DB {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	var err error

	const maxAttempts = 10
	for i := 1; i <= maxAttempts; i++ {
		log.Printf("trying to connect to DB (attempt %d/%d)...", i, maxAttempts)

		DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: newGormLogger(log)})
		if err == nil {
			log.Println("connected to DB successfully")
			break
		}

		log.Printf("failed to connect to DB: %v", err)
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		log.Fatalf("failed to connect to db after %d attempts: %v", maxAttempts, err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	// дефолтный админ; демо-оргструктура только по флагу
	createDefaultAdmin(DB, opts.AdminUsername, opts.AdminPassword, log)
	if opts.SeedDemo {
		seedDemoData(DB, log)
	}

	return DB
}

func newGormLogger(log *logrus.Logger) gormlogger.Interface {
	return gormlogger.New(log, gormlogger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  gormlogger.Error,
		IgnoreRecordNotFoundError: true,
	})
}

// миграции
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Site{},
		&models.Employee{},
		&models.Division{},
		&models.Unit{},
		&models.User{},
		&models.IndicatorCategory{},
		&models.Indicator{},
		&models.IndicatorUnit{},
		&models.IndicatorEntry{},
		&models.IndicatorEntryItem{},
		&models.VerificationLog{},
		&models.PDCA{},
		&models.ActivityLog{},
	)
}

// админ только из конфига
func createDefaultAdmin(db *gorm.DB, username, password string, log *logrus.Logger) {
	var count int64
	if err := db.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		log.Printf("failed to check admin user: %v", err)
		return
	}
	if count > 0 {
		// админ уже есть: ничего не делаем
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("failed to hash default admin password: %v", err)
		return
	}

	admin := models.User{
		Username:     username,
		Name:         "Administrator",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}

	if err := db.Create(&admin).Error; err != nil {
		log.Printf("failed to create default admin: %v", err)
		return
	}

	log.Printf("created default admin user: %s", username)
}

// демо: один site, одна division, одно отделение и по аккаунту на каждую роль
func seedDemoData(db *gorm.DB, log *logrus.Logger) {
	var count int64
	if err := db.Model(&models.Site{}).Count(&count).Error; err != nil {
		log.Printf("failed to check demo data: %v", err)
		return
	}
	if count > 0 {
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		site := models.Site{Name: "RS Demo", Address: "Jl. Contoh No. 1"}
		if err := tx.Create(&site).Error; err != nil {
			return err
		}

		manager := models.Employee{FullName: "Kepala Divisi Demo"}
		if err := tx.Create(&manager).Error; err != nil {
			return err
		}

		division := models.Division{SiteID: &site.ID, Name: "Pelayanan Medis", ManagerID: &manager.ID}
		if err := tx.Create(&division).Error; err != nil {
			return err
		}

		unit := models.Unit{SiteID: &site.ID, DivisionID: &division.ID, UnitCode: "IGD", Name: "Instalasi Gawat Darurat"}
		if err := tx.Create(&unit).Error; err != nil {
			return err
		}

		type seedUser struct {
			Username string
			Password string
			Role     models.UserRole
		}
		users := []seedUser{
			{Username: "user@simutu.local", Password: "User123!", Role: models.RoleUser},
			{Username: "manager@simutu.local", Password: "Manager123!", Role: models.RoleManager},
			{Username: "auditor@simutu.local", Password: "Auditor123!", Role: models.RoleAuditor},
		}

		for _, u := range users {
			hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			user := models.User{Username: u.Username, Name: u.Username, PasswordHash: string(hash), Role: u.Role}
			switch u.Role {
			case models.RoleUser:
				user.UnitID = &unit.ID
			case models.RoleManager:
				user.EmployeeID = &manager.ID
			case models.RoleAuditor:
				user.SiteID = &site.ID
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			log.Printf("created seed user: %s (role=%s)", u.Username, u.Role)
		}
		return nil
	})
	if err != nil {
		log.Printf("failed to seed demo data: %v", err)
	}
}
