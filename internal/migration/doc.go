// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 基于 golang-migrate 管理 PostgreSQL 与 MySQL 的版本化表结构。

# 概述

迁移文件通过 embed.FS 内嵌，迁移器运行在 database.Manager 借用的连接上，
因此与应用共享同一个受生命周期管理的连接池：连接不可用时迁移随之等待，
连接池重建后自动使用新的连接池。

# 核心类型

  - Migrator / DefaultMigrator：Up/Down/DownAll/Steps/Goto/Force/Version/
    Status/Info/Close 操作集。ctx 取消时通知 golang-migrate 平滑停止。
  - Schema：实现 database.SchemaDescriptor，Create 应用迁移，Recreate
    清除 dirty 后回滚全部再重新应用。
  - CLI：终端子命令分发与格式化输出。
  - WithMigrator：借用连接、创建迁移器并在结束时归还。

SQLite 不提供迁移文件，使用 database.Models 描述表结构。
*/
package migration
