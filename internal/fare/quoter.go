package fare

import (
	"context"
	"fmt"
)

// Quoter 计费入口：加载当前生效的配置 + 纯计算。
// 配置加载失败返回错误（调用方中止动作）；车型无费率时 ok=false，不报错。
type Quoter struct {
	repo *Repo
}

func NewQuoter(repo *Repo) *Quoter {
	return &Quoter{repo: repo}
}

func (q *Quoter) Quote(ctx context.Context, in Input) (Quote, bool, error) {
	if q == nil || q.repo == nil {
		return Quote{}, false, fmt.Errorf("quoter not initialized")
	}
	cfg, rates, settings, err := q.repo.LoadActive(ctx)
	if err != nil {
		return Quote{}, false, err
	}
	quote, ok := Compute(in, cfg, rates, settings)
	return quote, ok, nil
}
