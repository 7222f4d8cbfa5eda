package utils

import (
	"sync"
	"time"

	"github.com/mojocn/base64Captcha"
)

var (
	captchaStore     base64Captcha.Store
	captchaStoreOnce sync.Once
)

// getCaptchaStore prefers Redis so answers survive across instances.
func getCaptchaStore() base64Captcha.Store {
	captchaStoreOnce.Do(func() {
		if GetRedis() != nil {
			captchaStore = NewRedisCaptchaStore(10 * time.Minute)
			return
		}
		captchaStore = base64Captcha.DefaultMemStore
	})
	return captchaStore
}

// GenerateCaptcha creates a digit captcha and returns (id, dataURI) for the client to display.
func GenerateCaptcha() (string, string, error) {
	driver := base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80)
	id, b64, _, err := base64Captcha.NewCaptcha(driver, getCaptchaStore()).Generate()
	return id, b64, err
}

// VerifyCaptcha verifies the provided answer; it consumes the captcha on success.
func VerifyCaptcha(id, answer string) bool {
	if id == "" || answer == "" {
		return false
	}
	return getCaptchaStore().Verify(id, answer, true)
}
