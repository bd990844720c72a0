// Package policy содержит правила допуска повторных ставок.
// Движок не имеет состояния: все решения принимаются по переданной
// истории ставок и текущим остаткам товара.
package policy

import (
	"fmt"
	"time"
)

// Коды нарушений политики
const (
	CodeMaxRebids = "max_rebids"
	CodeCooldown  = "cooldown"
	CodePrice     = "price"
	CodeStock     = "out_of_stock"
)

// Config содержит настраиваемые пределы политики
type Config struct {
	MaxRebids int           // Максимальное число ставок покупателя на один товар
	Cooldown  time.Duration // Минимальный интервал между ставками
}

// History содержит сводку по прошлым ставкам покупателя на товар.
// Учитываются ставки в любом статусе.
type History struct {
	TotalBids int
	LastBidAt time.Time
}

// Request описывает новую ставку, которую покупатель хочет отправить
type Request struct {
	UnitPrice int64
	Quantity  int
}

// Result содержит итог проверки. Quantity может быть уменьшено
// до доступного остатка, тогда Adjusted=true.
type Result struct {
	Quantity int
	Adjusted bool
}

// Violation описывает нарушение политики повторных ставок
type Violation struct {
	Code       string
	Reason     string
	RetryAfter time.Duration // Остаток ожидания, только для CodeCooldown
}

func (v *Violation) Error() string {
	return v.Reason
}

// Evaluate проверяет допустимость повторной ставки. Проверки выполняются
// по порядку: лимит числа ставок, кулдаун, цена, остатки. Превышение
// остатков не является ошибкой: количество уменьшается до доступного.
// Нулевой остаток — отдельное нарушение: ставку с нулевым количеством
// создать нельзя. Цена должна быть строго больше цены заменяемой ставки —
// минимальный процент прироста сервером не проверяется, это подсказка
// на клиенте.
func Evaluate(cfg Config, hist History, prevUnitPrice int64, req Request, stock int, now time.Time) (Result, error) {
	if hist.TotalBids >= cfg.MaxRebids {
		return Result{}, &Violation{
			Code:   CodeMaxRebids,
			Reason: fmt.Sprintf("достигнут лимит ставок на этот товар (%d)", cfg.MaxRebids),
		}
	}

	if !hist.LastBidAt.IsZero() {
		elapsed := now.Sub(hist.LastBidAt)
		if elapsed < cfg.Cooldown {
			remaining := cfg.Cooldown - elapsed
			return Result{}, &Violation{
				Code:       CodeCooldown,
				Reason:     fmt.Sprintf("подождите %d сек. перед следующей ставкой", int(remaining.Seconds())+1),
				RetryAfter: remaining,
			}
		}
	}

	if req.UnitPrice <= 0 || req.UnitPrice <= prevUnitPrice {
		return Result{}, &Violation{
			Code:   CodePrice,
			Reason: fmt.Sprintf("новая цена должна быть выше предыдущей (%d)", prevUnitPrice),
		}
	}

	if stock == 0 {
		return Result{}, &Violation{
			Code:   CodeStock,
			Reason: "товар закончился — повторная ставка невозможна, отклонённую ставку можно удалить",
		}
	}

	result := Result{Quantity: req.Quantity}
	if stock > 0 && req.Quantity > stock {
		// Остатки часто меняются между отклонением и повторной ставкой,
		// поэтому количество молча уменьшаем, а не отклоняем запрос
		result.Quantity = stock
		result.Adjusted = true
	}

	return result, nil
}
