package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"media_share_service/internal/media/domain"
	"media_share_service/pkg/logger"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// 基礎設施失敗後重送前的等待, 測試可以改短
var retryDelay = 10 * time.Second

// Consumer 消費 merge queue, 一次處理一個 job
type Consumer struct {
	rabbitChannel *amqp.Channel
	useCase       MediaUseCase
	queueName     string
}

// NewConsumer 建構 Consumer 實例
func NewConsumer(rabbitChannel *amqp.Channel, useCase MediaUseCase, queueName string) *Consumer {
	return &Consumer{
		rabbitChannel: rabbitChannel,
		useCase:       useCase,
		queueName:     queueName,
	}
}

// StartConsumer 宣告 queue, prefetch 1, 手動 ack
func (c *Consumer) StartConsumer(ctx context.Context) error {
	if _, err := c.rabbitChannel.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queueName, err)
	}
	if err := c.rabbitChannel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := c.rabbitChannel.Consume(
		c.queueName,
		"",    // consumer tag，留空由系統分配
		false, // autoAck 為 false，使用手動確認
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queueName, err)
	}

	logger.Log.Info("Consumer 已啟動，等待 merge 工作訊息...", zap.String("queue", c.queueName))
	c.consume(ctx, msgs)
	return nil
}

func (c *Consumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				logger.Log.Info("RabbitMQ 消費 channel 已關閉")
				return
			}
			c.handle(ctx, d)
		case <-ctx.Done():
			logger.Log.Info("Consumer 收到停止訊號")
			return
		}
	}
}

// handle 訊息格式錯誤直接丟棄, pipeline 失敗 ack (結果已記在 job status),
// 基礎設施失敗 nack 並重新排入
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var job domain.MergeJob
	if err := json.Unmarshal(d.Body, &job); err != nil || job.JobID == "" {
		logger.Log.Error("解析 merge 工作訊息失敗", zap.Error(err), zap.ByteString("body", d.Body))
		if err := d.Nack(false, false); err != nil {
			logger.Log.Error("Nack 訊息失敗", zap.Error(err))
		}
		return
	}

	logger.Log.Info("收到 merge 工作訊息",
		zap.String("job_id", job.JobID),
		zap.Int("clips", len(job.ClipURLs)),
		zap.Bool("publish", job.Publish),
	)

	status, err := c.useCase.RunMergeJob(ctx, job)
	if err != nil {
		logger.Log.Error("處理 merge 工作失敗, 重新排入", zap.String("job_id", job.JobID), zap.Error(err))
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
		}
		if err := d.Nack(false, true); err != nil {
			logger.Log.Error("Nack 訊息失敗", zap.Error(err))
		}
		return
	}

	if err := d.Ack(false); err != nil {
		logger.Log.Error("確認訊息失敗", zap.String("job_id", job.JobID), zap.Error(err))
		return
	}
	logger.Log.Info("merge 工作完成",
		zap.String("job_id", job.JobID),
		zap.String("state", string(status.State)),
	)
}
