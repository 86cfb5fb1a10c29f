// Package telemetry 负责 OpenTelemetry SDK 初始化，并把连接生命周期事件
// 记录为 OTel 指标（Observer）。遥测禁用时使用 noop 实现，不连接外部服务。
package telemetry
