package db

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"travel-heatmap/algo"
	"travel-heatmap/config"
	"travel-heatmap/model"
)

// DB 全局数据库连接，InitDB 之后可用
var DB *gorm.DB

// ErrUserExists 用户名已被注册
var ErrUserExists = errors.New("user already exists")

// InitDB 连接 PostgreSQL，自动迁移表结构
// 路网表为空时导入种子数据 (供离线路网规划使用)
func InitDB(cfg config.DatabaseConfig) error {
	// 带重试的数据库连接 (Docker 启动时数据库可能还没准备好)
	var err error
	maxRetries := 30
	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
		if err == nil {
			break
		}
		log.Printf("等待数据库就绪... (%d/%d): %v", i+1, maxRetries, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return fmt.Errorf("无法连接数据库: %w", err)
	}

	if err := DB.AutoMigrate(&model.User{}, &model.Node{}, &model.Edge{}); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	empty, err := graphEmpty(DB)
	if err != nil {
		return err
	}
	if empty && cfg.SeedFile != "" {
		log.Printf("路网为空，正在导入 %s...", cfg.SeedFile)
		if err := importMapData(cfg.SeedFile); err != nil {
			log.Printf("警告: 导入路网数据失败: %v", err)
		} else {
			log.Println("路网数据导入成功!")
		}
	}

	log.Println("数据库连接并初始化成功！")
	return nil
}

// graphEmpty 路网节点表是否为空，查询失败时返回错误而不是触发导入
func graphEmpty(tx *gorm.DB) (bool, error) {
	var nodeCount int64
	if err := tx.Model(&model.Node{}).Count(&nodeCount).Error; err != nil {
		return false, fmt.Errorf("统计路网节点失败: %w", err)
	}
	return nodeCount == 0, nil
}

// readMapData 读取并解析种子数据文件
func readMapData(path string) (model.MapData, error) {
	var data model.MapData
	file, err := os.ReadFile(path)
	if err != nil {
		return data, fmt.Errorf("读取文件失败: %w", err)
	}
	if err := json.Unmarshal(file, &data); err != nil {
		return data, fmt.Errorf("解析 JSON 失败: %w", err)
	}
	return data, nil
}

// importMapData 从 JSON 文件导入路网数据
func importMapData(path string) error {
	data, err := readMapData(path)
	if err != nil {
		return err
	}

	return DB.Transaction(func(tx *gorm.DB) error {
		if len(data.Nodes) > 0 {
			if err := tx.CreateInBatches(data.Nodes, 100).Error; err != nil {
				return fmt.Errorf("插入节点失败: %w", err)
			}
			log.Printf("导入了 %d 个节点", len(data.Nodes))
		}
		if len(data.Edges) > 0 {
			if err := tx.CreateInBatches(data.Edges, 100).Error; err != nil {
				return fmt.Errorf("插入边失败: %w", err)
			}
			log.Printf("导入了 %d 条边", len(data.Edges))
		}
		return nil
	})
}

// LoadGraph 从数据库构建路网
func LoadGraph() (*algo.Graph, error) {
	var nodes []model.Node
	if err := DB.Find(&nodes).Error; err != nil {
		return nil, fmt.Errorf("读取节点失败: %w", err)
	}
	var edges []model.Edge
	if err := DB.Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("读取边失败: %w", err)
	}
	return algo.BuildGraph(nodes, edges), nil
}

// FindUser 按用户名查找用户，不存在时返回 gorm.ErrRecordNotFound
func FindUser(username string) (*model.User, error) {
	var user model.User
	if err := DB.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser 创建用户
func CreateUser(user *model.User) error {
	var count int64
	if err := DB.Model(&model.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUserExists
	}
	return DB.Create(user).Error
}
