// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供健康检查 HTTP 服务：服务器生命周期管理、健康与就绪
端点、Prometheus 指标端点以及请求中间件。

# 核心类型

  - Manager：封装 net/http.Server，非阻塞启动、优雅关闭与异步错误
    传播。MaxConnections 大于 0 时通过 netutil.LimitListener 限制并发连接。
  - HealthSource：可上报 lifecycle.Health 的组件，数据库与缓存管理器均满足。
  - RouterConfig / NewRouter：组装 /healthz、/readyz、/livez、/version
    与 /metrics 路由及中间件链。

# 端点

  - /healthz：各组件健康快照，始终 200，不做 I/O。
  - /readyz：与 /healthz 相同的响应体，任一组件未连接时返回 503。
  - /livez：进程存活。
  - /metrics：Prometheus 指标。

# 中间件

Recovery、RequestID、OTelTracing、Metrics、RequestLogger，通过 Chain 串联。
*/
package server
