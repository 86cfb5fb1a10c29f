// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的连接生命周期指标采集。

# 概述

Collector 使用 promauto 注册到默认 Registry，按 namespace 隔离。
它实现 lifecycle.Observer，挂到数据库与缓存的生命周期管理器上即可
记录状态变化、建连尝试、探活耗时、重建与等待耗时。

# 主要指标

  - lifecycle_state / lifecycle_state_transitions_total：当前状态与状态转换。
  - lifecycle_connect_attempts_total / lifecycle_rebuilds_total：按 result 分组。
  - lifecycle_probe_duration_seconds / lifecycle_wait_duration_seconds。
  - db_connections_open / in_use / idle / db_pool_generation：抓取时读取连接池统计。
  - http_requests_total / http_request_duration_seconds：健康检查服务的请求。
*/
package metrics
