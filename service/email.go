package service

import (
	"context"
	"fmt"
	"html"

	"budget/config"
	"budget/models"

	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

// EmailService 邮件服务
type EmailService struct {
	cfg  *config.EmailConfig
	send func(m *gomail.Message) error
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	s := &EmailService{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

// Enabled 是否已启用邮件
func (s *EmailService) Enabled() bool {
	return s.cfg != nil && s.cfg.Enabled
}

// OverspendAlert 超支提醒内容
type OverspendAlert struct {
	Username string
	Account  string
	Currency string
	Period   models.Period
	Category models.CategoryView
}

// SendOverspendAlert 发送类别超支提醒
func (s *EmailService) SendOverspendAlert(toEmail string, alert OverspendAlert) error {
	if !s.Enabled() {
		return fmt.Errorf("邮件服务未启用，请配置 BUDGET_EMAIL_ENABLED=true")
	}

	subject := fmt.Sprintf("【预算提醒】%s %s 已超支", alert.Period, alert.Category.Name)
	return s.sendEmail(toEmail, subject, s.generateOverspendBody(alert))
}

// generateOverspendBody 生成超支提醒邮件内容
func (s *EmailService) generateOverspendBody(alert OverspendAlert) string {
	c := alert.Category
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Microsoft YaHei', Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 20px rgba(0,0,0,0.1); }
        .header { background: linear-gradient(135deg, #dc2626, #b91c1c); color: white; padding: 30px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { padding: 40px 30px; }
        .content p { color: #333; line-height: 1.8; margin: 0 0 20px; }
        table { width: 100%%; border-collapse: collapse; }
        td { padding: 8px 0; border-bottom: 1px solid #eee; }
        .over { color: #dc2626; font-weight: 600; }
        .footer { background: #f8f9fa; padding: 20px 30px; text-align: center; color: #6c757d; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>预算超支提醒</h1>
        </div>
        <div class="content">
            <p>尊敬的 <strong>%s</strong>，您好！</p>
            <p>账户 <strong>%s</strong> 在 %s 的类别 <strong>%s</strong> 已超出预算：</p>
            <table>
                <tr><td>预算</td><td>%s %s</td></tr>
                <tr><td>已支出</td><td>%s %s</td></tr>
                <tr><td>超支</td><td class="over">%s %s</td></tr>
                <tr><td>使用率</td><td class="over">%.2f%%</td></tr>
            </table>
        </div>
        <div class="footer">
            <p>此邮件由系统自动发送，请勿回复</p>
        </div>
    </div>
</body>
</html>
`,
		html.EscapeString(alert.Username),
		html.EscapeString(alert.Account), alert.Period, html.EscapeString(c.Name),
		c.Budget, alert.Currency,
		c.Spent, alert.Currency,
		c.Spent.Sub(c.Budget), alert.Currency,
		c.PercentUsed,
	)
}

// SendPlanReminder 提醒尚未制定当月预算的用户
func (s *EmailService) SendPlanReminder(toEmail, username string, period models.Period) error {
	if !s.Enabled() {
		return fmt.Errorf("邮件服务未启用，请配置 BUDGET_EMAIL_ENABLED=true")
	}

	subject := fmt.Sprintf("【预算提醒】请制定 %s 的预算", period)
	return s.sendEmail(toEmail, subject, s.generatePlanReminderBody(username, period))
}

// generatePlanReminderBody 生成月度计划提醒内容
func (s *EmailService) generatePlanReminderBody(username string, period models.Period) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: 'Microsoft YaHei', Arial, sans-serif; padding: 20px;">
    <h2>📅 %s 预算尚未制定</h2>
    <p>尊敬的 <strong>%s</strong>，您好！</p>
    <p>新的月份已经开始，您还没有为 %s 分配预算。登录后填写本月收入并分配到各个类别，即可开始记账。</p>
    <p style="color: #666;">此邮件由系统自动发送，请勿回复</p>
</body>
</html>
`, period, html.EscapeString(username), period)
}

// SendTestEmail 发送测试邮件
func (s *EmailService) SendTestEmail(toEmail string) error {
	if !s.Enabled() {
		return fmt.Errorf("邮件服务未启用")
	}

	subject := "【预算系统】邮件配置测试"
	body := `
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; padding: 20px;">
    <h2>✅ 邮件配置成功</h2>
    <p>如果您收到这封邮件，说明邮件服务配置正确。</p>
</body>
</html>
`
	return s.sendEmail(toEmail, subject, body)
}

// sendEmail 发送邮件
func (s *EmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.Username, s.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.send(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}

func (s *EmailService) dialAndSend(m *gomail.Message) error {
	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	return d.DialAndSend(m)
}

// EmailNotifier 通过邮件通知账户下所有留有邮箱的用户
type EmailNotifier struct {
	db   *gorm.DB
	mail *EmailService
}

// NewEmailNotifier 创建超支邮件通知
func NewEmailNotifier(db *gorm.DB, mail *EmailService) *EmailNotifier {
	return &EmailNotifier{db: db, mail: mail}
}

// NotifyOverspend 实现 OverspendNotifier
func (n *EmailNotifier) NotifyOverspend(ctx context.Context, accountID uint, period models.Period, category models.CategoryView) error {
	if !n.mail.Enabled() {
		return nil
	}

	var account models.Account
	if err := n.db.WithContext(ctx).First(&account, accountID).Error; err != nil {
		return fmt.Errorf("查询账户失败: %w", err)
	}
	var users []models.User
	if err := n.db.WithContext(ctx).
		Where("account_id = ? AND email <> '' AND status = ?", accountID, models.UserStatusActive).
		Find(&users).Error; err != nil {
		return fmt.Errorf("查询用户失败: %w", err)
	}

	var firstErr error
	for _, u := range users {
		err := n.mail.SendOverspendAlert(u.Email, OverspendAlert{
			Username: u.Username,
			Account:  account.Name,
			Currency: account.Currency,
			Period:   period,
			Category: category,
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
