// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 connkeeper 连接守护进程的命令行入口。

# 子命令

  - serve：加载配置，启动数据库与缓存的连接生命周期管理，按
    schema.mode 建表（失败只告警），并提供 /healthz、/readyz、
    /livez、/version 与 /metrics 端点。收到 SIGINT/SIGTERM 后先停
    HTTP 服务，再关闭各连接管理器。
  - migrate：通过数据库管理器借用一个连接运行内嵌迁移，子命令
    包括 up、down、reset、steps、goto、force、version、status、info。
  - health：请求运行中服务的 /readyz，任一组件未连接时以非零码退出。
  - version：输出构建时注入的版本信息。

# 配置

配置按 默认值 → 配置文件 → 旧版环境变量（POSTGRES_* 等）→
CONNKEEPER_ 前缀环境变量 的顺序合并，详见 config 包。
*/
package main
