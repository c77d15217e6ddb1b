package comfy

import "math/rand"

// TextToImageParams 文生图参数
type TextToImageParams struct {
	Prompt     string
	Negative   string
	Checkpoint string
	Width      int
	Height     int
	Steps      int
	Seed       int64
}

// BuildTextToImageGraph 构造标准的 checkpoint 文生图 prompt 图
// 节点编号沿用 ComfyUI 默认工作流的习惯
func BuildTextToImageGraph(p *TextToImageParams) map[string]any {
	seed := p.Seed
	if seed <= 0 {
		seed = rand.Int63()
	}
	return map[string]any{
		"3": map[string]any{
			"class_type": "KSampler",
			"inputs": map[string]any{
				"seed":         seed,
				"steps":        p.Steps,
				"cfg":          1.0,
				"sampler_name": "euler",
				"scheduler":    "simple",
				"denoise":      1.0,
				"model":        []any{"4", 0},
				"positive":     []any{"6", 0},
				"negative":     []any{"7", 0},
				"latent_image": []any{"5", 0},
			},
		},
		"4": map[string]any{
			"class_type": "CheckpointLoaderSimple",
			"inputs": map[string]any{
				"ckpt_name": p.Checkpoint,
			},
		},
		"5": map[string]any{
			"class_type": "EmptyLatentImage",
			"inputs": map[string]any{
				"width":      p.Width,
				"height":     p.Height,
				"batch_size": 1,
			},
		},
		"6": map[string]any{
			"class_type": "CLIPTextEncode",
			"inputs": map[string]any{
				"text": p.Prompt,
				"clip": []any{"4", 1},
			},
		},
		"7": map[string]any{
			"class_type": "CLIPTextEncode",
			"inputs": map[string]any{
				"text": p.Negative,
				"clip": []any{"4", 1},
			},
		},
		"8": map[string]any{
			"class_type": "VAEDecode",
			"inputs": map[string]any{
				"samples": []any{"3", 0},
				"vae":     []any{"4", 2},
			},
		},
		"9": map[string]any{
			"class_type": "SaveImage",
			"inputs": map[string]any{
				"filename_prefix": "infinite-book-cover",
				"images":          []any{"8", 0},
			},
		},
	}
}
