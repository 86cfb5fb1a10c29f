// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的缓存管理能力。

# 概述

Manager 封装 go-redis 客户端，连接由 lifecycle.Manager 维护：
Start 后在后台持续重试建连，周期探活失败时重建客户端，
所有读写操作在连接不可用时等待，等待只受调用方 ctx 控制。

# 核心类型

  - Manager：Get/Set/Delete/Exists/Expire 基础操作，GetJSON/SetJSON
    便捷序列化，GetStats 解析 INFO 输出。
  - Config：地址、密码、连接池大小、默认 TTL 与 TLS 开关。
  - Stats：命中、未命中、键数量、内存与连接数。

# 错误语义

  - ErrCacheMiss / IsCacheMiss：键不存在。
  - ErrClosed：管理器已关闭。
*/
package cache
