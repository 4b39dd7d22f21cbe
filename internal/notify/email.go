package notify

import (
	"fmt"

	"github.com/noah-isme/backend-course/internal/course"
)

// courseEmail holds everything needed to render one course-access email.
type courseEmail struct {
	Info          course.Info
	Locale        course.Locale
	OrderRef      string
	CustomerEmail string
	TelegramLink  string
	HeroImageURL  string
}

func (e courseEmail) subject() string {
	title := e.Info.LocalTitle(e.Locale)
	if e.Locale == course.LocaleUK {
		return fmt.Sprintf("🎉 Доступ до курсу \"%s\" - Замовлення %s", title, e.OrderRef)
	}
	return fmt.Sprintf("🎉 Access to \"%s\" Course - Order %s", title, e.OrderRef)
}

func (e courseEmail) body() string {
	if e.Locale == course.LocaleUK {
		return fmt.Sprintf(ukBodyTemplate,
			e.HeroImageURL,
			e.Info.LocalTitle(e.Locale),
			e.Info.LocalDescription(e.Locale),
			e.OrderRef,
			e.CustomerEmail,
			e.TelegramLink,
		)
	}
	return fmt.Sprintf(enBodyTemplate,
		e.HeroImageURL,
		e.Info.LocalTitle(e.Locale),
		e.Info.LocalDescription(e.Locale),
		e.OrderRef,
		e.CustomerEmail,
		e.TelegramLink,
	)
}

const ukBodyTemplate = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="text-align: center; margin-bottom: 16px;">
    <img src="%s" alt="Course" style="max-width: 100%%; border-radius: 8px;" />
  </div>
  <div style="text-align: center; margin-bottom: 18px;">
    <h1 style="color: #e91e63; margin: 0 0 6px;">🎉 Оплата успішна!</h1>
    <p style="font-size: 16px; color: #666; margin: 0;">Дякуємо за покупку</p>
  </div>
  <div style="background: #f8f9fa; padding: 16px; border-radius: 10px; margin-bottom: 16px;">
    <h2 style="color: #333; margin-top: 0;">Деталі замовлення</h2>
    <p><strong>Курс:</strong> %s</p>
    <p><strong>Опис:</strong> %s</p>
    <p><strong>Номер замовлення:</strong> %s</p>
    <p><strong>Email:</strong> %s</p>
  </div>
  <div style="background: #e3f2fd; padding: 16px; border-radius: 10px; margin-bottom: 16px; text-align: center;">
    <h3 style="color: #1976d2; margin-top: 0;">🔗 Доступ до курсу</h3>
    <p style="margin: 10px 0;">Натисніть, щоб перейти до закритого Telegram-каналу з курсом:</p>
    <a href="%s" style="background: #e91e63; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; font-weight: bold; display: inline-block;">🚀 Перейти до курсу</a>
    <p style="font-size: 12px; color: #666; margin-top: 10px;">Збережіть це посилання — доступ надається назавжди.</p>
  </div>
</div>`

const enBodyTemplate = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="text-align: center; margin-bottom: 16px;">
    <img src="%s" alt="Course" style="max-width: 100%%; border-radius: 8px;" />
  </div>
  <div style="text-align: center; margin-bottom: 18px;">
    <h1 style="color: #e91e63; margin: 0 0 6px;">🎉 Payment Successful!</h1>
    <p style="font-size: 16px; color: #666; margin: 0;">Thank you for your purchase</p>
  </div>
  <div style="background: #f8f9fa; padding: 16px; border-radius: 10px; margin-bottom: 16px;">
    <h2 style="color: #333; margin-top: 0;">Order Details</h2>
    <p><strong>Course:</strong> %s</p>
    <p><strong>Description:</strong> %s</p>
    <p><strong>Order ID:</strong> %s</p>
    <p><strong>Email:</strong> %s</p>
  </div>
  <div style="background: #e3f2fd; padding: 16px; border-radius: 10px; margin-bottom: 16px; text-align: center;">
    <h3 style="color: #1976d2; margin-top: 0;">🔗 Course Access</h3>
    <p style="margin: 10px 0;">Click to join the private Telegram channel with your course:</p>
    <a href="%s" style="background: #e91e63; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; font-weight: bold; display: inline-block;">🚀 Access Course</a>
    <p style="font-size: 12px; color: #666; margin-top: 10px;">Save this link — access is provided for lifetime.</p>
  </div>
</div>`
