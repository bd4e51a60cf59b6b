// Package biz 提供 AI 助教的业务逻辑层。
//
// 组件划分：
//   - Embedder: 分块向量化、归一化校验与事务化写入
//   - Retriever: 按课程或章节范围的向量检索
//   - Reranker: 交叉编码器重排序并截断
//   - Assembler: 按范围拼装上下文 Markdown 与提示词
//   - TutorService: 组合以上组件，提供提问与重建向量入口
package biz
