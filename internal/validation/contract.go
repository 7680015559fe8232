package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinTitleLength        = 3
	MaxTitleLength        = 200
	MaxReasonLength       = 2000
	MaxMemoLength         = 500
	MaxFileURLLength      = 500
	MaxFilesPerSubmission = 50
	MinAmount             = 0.0
	MaxAmount             = 100000000.0 // 100 миллионов
	MaxHoursPerWeek       = 168.0
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateContractTitle проверяет название контракта.
func ValidateContractTitle(title string) error {
	return ValidateLength("название контракта", strings.TrimSpace(title), MinTitleLength, MaxTitleLength)
}

// ValidateReason проверяет текст причины (расторжение, перенос срока).
func ValidateReason(reason string) error {
	return ValidateLength("причина", strings.TrimSpace(reason), 0, MaxReasonLength)
}

// ValidateAmount проверяет денежную сумму.
func ValidateAmount(fieldName string, amount float64) error {
	if amount < MinAmount {
		return fmt.Errorf("%s не может быть отрицательной", fieldName)
	}
	if amount > MaxAmount {
		return fmt.Errorf("%s превышает максимально допустимую", fieldName)
	}
	return nil
}

// ValidateHours проверяет количество часов за неделю.
func ValidateHours(hours float64) error {
	if hours <= 0 {
		return fmt.Errorf("часы должны быть положительными")
	}
	if hours > MaxHoursPerWeek {
		return fmt.Errorf("в неделе не более %.0f часов", MaxHoursPerWeek)
	}
	return nil
}

// ValidateFileURL проверяет ссылку на файл сдачи.
func ValidateFileURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("ссылка на файл обязательна")
	}
	if utf8.RuneCountInString(raw) > MaxFileURLLength {
		return fmt.Errorf("ссылка на файл должна быть не более %d символов", MaxFileURLLength)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("некорректная ссылка на файл")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("ссылка на файл должна использовать http или https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("ссылка на файл должна содержать хост")
	}
	return nil
}

// ValidateFiles проверяет список файлов сдачи.
func ValidateFiles(urls []string) error {
	if len(urls) > MaxFilesPerSubmission {
		return fmt.Errorf("не более %d файлов за одну сдачу", MaxFilesPerSubmission)
	}
	for _, u := range urls {
		if err := ValidateFileURL(u); err != nil {
			return err
		}
	}
	return nil
}
