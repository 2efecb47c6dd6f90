package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
)

// LabelStore 订单标签对象存储
// 建单时上传拣货标签，创建流程失败时由补偿回滚删除
type LabelStore struct {
	client *minio.Client
	bucket string
}

func NewLabelStore(client *minio.Client, bucket string) *LabelStore {
	return &LabelStore{client: client, bucket: bucket}
}

// Put 上传订单标签，返回对象名
func (s *LabelStore) Put(ctx context.Context, orderReference string, payload []byte) (string, error) {
	if s.client == nil {
		return "", nil
	}
	objectName := fmt.Sprintf("orders/%s/label.txt", orderReference)
	_, err := s.client.PutObject(ctx, s.bucket, objectName,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		return "", fmt.Errorf("上传订单标签失败: %w", err)
	}
	return objectName, nil
}

// Remove 删除已上传的标签
func (s *LabelStore) Remove(ctx context.Context, objectName string) error {
	if s.client == nil || objectName == "" {
		return nil
	}
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}
