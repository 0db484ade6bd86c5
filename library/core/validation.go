package core

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	tagISBN13Checksum = "isbn13checksum"
	tagAuthorName     = "authorname"

	isbnRules     = "required," + tagISBN13Checksum
	titleRules    = "required"
	authorRules   = "required," + tagAuthorName
	userIDRules   = "required,len=12,number"
	userNameRules = "required"

	isbnDigits       = 13
	isbnGroupDivider = "-"
	authorSpecials   = "-'. "
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// registration only fails for empty tags or nil funcs
	_ = v.RegisterValidation(tagISBN13Checksum, func(fl validator.FieldLevel) bool {
		return IsValidISBN13(fl.Field().String())
	})

	_ = v.RegisterValidation(tagAuthorName, func(fl validator.FieldLevel) bool {
		return IsValidAuthorName(fl.Field().String())
	})

	return v
}

// ValidateISBN fails with ErrInvalidISBN, see IsValidISBN13.
func ValidateISBN(isbn string) error {
	if validate.Var(isbn, isbnRules) != nil {
		return ErrInvalidISBN
	}

	return nil
}

// ValidateTitle fails with ErrInvalidTitle if the title is empty.
func ValidateTitle(title string) error {
	if validate.Var(title, titleRules) != nil {
		return ErrInvalidTitle
	}

	return nil
}

// ValidateAuthor fails with ErrInvalidAuthor, see IsValidAuthorName.
func ValidateAuthor(author string) error {
	if validate.Var(author, authorRules) != nil {
		return ErrInvalidAuthor
	}

	return nil
}

// ValidateUserID fails with ErrInvalidUserID unless the ID consists of exactly 12 decimal digits.
func ValidateUserID(userID string) error {
	if validate.Var(userID, userIDRules) != nil {
		return ErrInvalidUserID
	}

	return nil
}

// ValidateUserName fails with ErrInvalidUserName if the name is empty.
func ValidateUserName(name string) error {
	if validate.Var(name, userNameRules) != nil {
		return ErrInvalidUserName
	}

	return nil
}

// ValidateBook checks a book that is about to be added to the catalog.
// Rules are checked in a fixed order and the first failing one is returned:
// nil book, ISBN, title, author, borrowed state.
func ValidateBook(book *Book) error {
	if book == nil {
		return ErrInvalidBook
	}

	if err := ValidateISBN(book.ISBN()); err != nil {
		return err
	}

	if err := ValidateTitle(book.Title()); err != nil {
		return err
	}

	if err := ValidateAuthor(book.Author()); err != nil {
		return err
	}

	if book.IsBorrowed() {
		return ErrInvalidBorrowedState
	}

	return nil
}

// ValidateUser checks a user that is about to be registered.
// Rules are checked in a fixed order and the first failing one is returned:
// nil user, ID, name, notification service.
func ValidateUser(user *User) error {
	if user == nil {
		return ErrInvalidUser
	}

	if err := ValidateUserID(user.ID()); err != nil {
		return err
	}

	if err := ValidateUserName(user.Name()); err != nil {
		return err
	}

	if user.NotificationService() == nil {
		return ErrInvalidNotificationService
	}

	return nil
}

// IsValidISBN13 reports whether isbn is a hyphenated or plain ISBN-13 with a correct check digit.
//
// Hyphens may only separate non-empty digit groups. The 13 digits must have a weighted sum
// (weights 1 and 3, alternating, starting with 1) that is a multiple of 10.
func IsValidISBN13(isbn string) bool {
	groups := strings.Split(isbn, isbnGroupDivider)
	digits := make([]int, 0, isbnDigits)

	for _, group := range groups {
		if group == "" {
			return false
		}

		for _, r := range group {
			if r < '0' || r > '9' {
				return false
			}

			digits = append(digits, int(r-'0'))
		}
	}

	if len(digits) != isbnDigits {
		return false
	}

	sum := 0
	for i, digit := range digits {
		if i%2 == 0 {
			sum += digit
		} else {
			sum += 3 * digit
		}
	}

	return sum%10 == 0
}

// IsValidAuthorName reports whether author starts and ends with a letter and contains only letters
// plus single special characters (hyphen, apostrophe, dot, space) between them.
func IsValidAuthorName(author string) bool {
	runes := []rune(author)
	if len(runes) == 0 {
		return false
	}

	if !unicode.IsLetter(runes[0]) || !unicode.IsLetter(runes[len(runes)-1]) {
		return false
	}

	for i := 1; i < len(runes)-1; i++ {
		if unicode.IsLetter(runes[i]) {
			continue
		}

		if !strings.ContainsRune(authorSpecials, runes[i]) {
			return false
		}

		if !unicode.IsLetter(runes[i-1]) {
			return false
		}
	}

	return true
}
