// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 lifecycle 提供与后端无关的连接生命周期管理：建连重试、后台健康探测、
故障后自动重建，以及在连接可用之前阻塞调用方的等待语义。

# 概述

Manager 持有一个可探活的连接池句柄（任何实现 Pool 接口的类型），
由两个后台循环驱动状态机：

  - 建连循环：固定间隔重试打开连接池并探活，成功后启动健康监控并退出。
  - 健康监控循环：周期性探活，失败时进入 Degraded 并立即重建，
    重建失败则按较短间隔继续重建，直到成功或 Close。

# 状态机

	Uninitialized → Connecting → Connected ⇄ Degraded
	任意状态 → Closed（仅 Close，或达到 MaxConnectAttempts）

连接池只存在于 Connected 状态的快照中，调用方无法观察到已被替换的旧连接池。

# 并发模型

每次状态变更都会原子发布一个不可变快照，并关闭旧快照的 changed 通道
作为广播通知。Wait 在 changed 与调用方 ctx 之间 select，没有轮询。
Snapshot 只做一次原子读取，不做任何 I/O。

# 可观测性

Observer 接收状态迁移、建连尝试、探活、重建与等待事件；
建连与探活会产生 OpenTelemetry span。连续建连失败的日志按实例限流。
*/
package lifecycle
