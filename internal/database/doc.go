// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的弹性数据库连接管理：后台无限重试建连、
周期探活、断线自动重建，并在连接可用前阻塞调用方。

# 概述

Manager 将 GORM 与 database/sql 的连接池交给 lifecycle.Manager 维护。
连接池句柄不对外暴露，调用方只能在回调内借用连接：

  - Acquire：借用一个 *sql.Conn，任何退出路径都会归还。
  - ScopedSession：在借用的连接上开启事务，返回 nil 提交，
    返回错误或 panic 回滚。
  - IsConnected：等待连接可用后探活一次，失败返回 false。
  - HealthSnapshot：不做 I/O 的健康快照，供健康检查接口轮询。

# 核心类型

  - Manager：连接管理器，New → Start → ... → Close。
  - Config：连接参数与连接池边界（MinConns/MaxConns、AcquireTimeout 等）。
  - Health / PoolStats：健康快照与连接池统计。
  - SchemaDescriptor / Models：CreateSchema 使用的表结构描述。
  - Model：以 UUIDv7 为主键的基础模型。

# 支持的驱动

postgres（默认）、mysql 与纯 Go 实现的 sqlite。

# 错误语义

配置错误在 New 时返回（errors.Is(err, ErrConfiguration)）；
暂时性连接错误只记录在 HealthSnapshot 中；Close 之后的借用返回 ErrManagerClosed；
建表失败返回 *SchemaSetupError，不影响连接状态。
*/
package database
