package locator

import (
	"fmt"
	"strings"
)

// TextLocator renders a text-containment locator in the requested dialect.
func TextLocator(text string, dialect Dialect) string {
	if text == "" {
		return ""
	}
	escaped := strings.ReplaceAll(text, `"`, `\"`)

	switch dialect {
	case DialectPlaywright:
		return fmt.Sprintf(`page.locator('text="%s"')`, escaped)
	case DialectSelenium:
		return fmt.Sprintf(`driver.find_element(By.XPATH, '//*[text()="%s"]')`, escaped)
	default:
		return "text=" + text
	}
}

// AttributeLocator renders an attribute-equality locator in the requested
// dialect. The id and class attributes use their shorthand selector forms.
func AttributeLocator(attribute, value string, dialect Dialect) string {
	if attribute == "" || value == "" {
		return ""
	}
	escaped := strings.ReplaceAll(value, `"`, `\"`)

	switch dialect {
	case DialectPlaywright:
		switch attribute {
		case "id":
			return fmt.Sprintf(`page.locator('#%s')`, escaped)
		case "class":
			return fmt.Sprintf(`page.locator('.%s')`, escaped)
		default:
			return fmt.Sprintf(`page.locator('[%s="%s"]')`, attribute, escaped)
		}
	case DialectSelenium:
		switch attribute {
		case "id":
			return fmt.Sprintf(`driver.find_element(By.ID, "%s")`, escaped)
		case "class":
			return fmt.Sprintf(`driver.find_element(By.CLASS_NAME, "%s")`, escaped)
		default:
			return fmt.Sprintf(`driver.find_element(By.XPATH, '//*[@%s="%s"]')`, attribute, escaped)
		}
	default:
		switch attribute {
		case "id":
			return "#" + value
		case "class":
			return "." + value
		default:
			return fmt.Sprintf(`[%s="%s"]`, attribute, escaped)
		}
	}
}
