package game

import "testing"

// TestNewCredibilityDefaults 验证初始值。
// 场景：新建存储后可信度 80、积分 0。
func TestNewCredibilityDefaults(t *testing.T) {
	c := NewCredibility()

	if c.Credibility() != DefaultCredibility {
		t.Fatalf("expected credibility %d, got %d", DefaultCredibility, c.Credibility())
	}
	if c.Points() != 0 {
		t.Fatalf("expected zero points, got %d", c.Points())
	}
}

// TestSetCredibilityDoesNotClamp 验证存储本身不做钳制。
// 场景：钳制是调用方的职责，负值和超 100 的值都原样落库。
func TestSetCredibilityDoesNotClamp(t *testing.T) {
	c := NewCredibility()

	c.SetCredibility(-10)
	if c.Credibility() != -10 {
		t.Fatalf("expected raw -10, got %d", c.Credibility())
	}
	c.SetCredibility(150)
	if c.Credibility() != 150 {
		t.Fatalf("expected raw 150, got %d", c.Credibility())
	}
}

// TestRestoreCredibility 验证从持久化值恢复。
// 场景：恢复后的读数等于传入值，与默认值无关。
func TestRestoreCredibility(t *testing.T) {
	c := RestoreCredibility(65, 300)

	if c.Credibility() != 65 || c.Points() != 300 {
		t.Fatalf("expected 65/300, got %d/%d", c.Credibility(), c.Points())
	}
}
