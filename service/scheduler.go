package service

import (
	"context"
	"fmt"
	"time"

	"budget/logger"
	"budget/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// reminderTimeout 单次提醒任务的最长执行时间
const reminderTimeout = 5 * time.Minute

// PlanReminder 向尚未制定当月预算的账户发送提醒邮件
type PlanReminder struct {
	db       *gorm.DB
	accounts *AccountService
	mail     *EmailService
	now      func() time.Time
	log      *logrus.Entry
}

// NewPlanReminder 创建月度计划提醒
func NewPlanReminder(db *gorm.DB, mail *EmailService) *PlanReminder {
	return &PlanReminder{
		db:       db,
		accounts: NewAccountService(db),
		mail:     mail,
		now:      time.Now,
		log:      logger.Component("reminder"),
	}
}

// Run 执行一次提醒，返回成功发送的邮件数
func (r *PlanReminder) Run(ctx context.Context) (int, error) {
	if !r.mail.Enabled() {
		return 0, nil
	}
	period := models.CurrentPeriod(r.now())
	accounts, err := r.accounts.AccountsWithoutPlan(ctx, period)
	if err != nil {
		return 0, err
	}
	if len(accounts) == 0 {
		return 0, nil
	}

	ids := make([]uint, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("account_id IN ? AND email <> '' AND status = ?", ids, models.UserStatusActive).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return 0, fmt.Errorf("查询用户失败: %w", err)
	}

	sent := 0
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := r.mail.SendPlanReminder(u.Email, u.Username, period); err != nil {
			r.log.WithError(err).WithField("user_id", u.ID).Warn("发送预算提醒失败")
			continue
		}
		sent++
	}
	r.log.WithFields(logrus.Fields{
		"period":   period.String(),
		"accounts": len(accounts),
		"sent":     sent,
	}).Info("月度预算提醒已发送")
	return sent, nil
}

// Scheduler 定时任务
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Entry
}

// NewScheduler 按 cron 表达式注册月度提醒任务
func NewScheduler(spec string, reminder *PlanReminder) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(),
		log:  logger.Component("scheduler"),
	}
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reminderTimeout)
		defer cancel()
		if _, err := reminder.Run(ctx); err != nil {
			s.log.WithError(err).Error("月度预算提醒任务失败")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("无效的定时任务表达式 %q: %w", spec, err)
	}
	return s, nil
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.WithField("jobs", len(s.cron.Entries())).Info("定时任务已启动")
}

// Stop 停止调度并等待运行中的任务结束
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
