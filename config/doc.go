// Package config 提供 connkeeper 的配置加载与校验。
//
// 配置按 默认值 → YAML/TOML 文件 → 旧版环境变量 → CONNKEEPER_ 前缀环境变量
// 的顺序叠加，并可转换为数据库、缓存、迁移与生命周期各组件的配置。
package config
