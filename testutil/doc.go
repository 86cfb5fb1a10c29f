// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 testutil 提供 connkeeper 测试共享的辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 日志辅助: ObservedLogger 基于 zaptest/observer 捕获日志条目
  - 异步断言: AssertEventuallyTrue / AssertEventuallyEqual / WaitFor
  - 数据工具: MustJSON / MustParseJSON / AssertJSONEqual

# 子包

  - testutil/mocks: MockBackend 与 MockPool，按脚本模拟后端宕机、
    探活失败与阻塞拨号，并记录连接池的打开与关闭
*/
package testutil
