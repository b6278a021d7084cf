package rig

// Toggles enables live tracking per joint group. A disabled joint is driven
// to its rest rotation instead.
type Toggles struct {
	RotateRoot           bool `json:"rotate_root"`
	RotateNeck           bool `json:"rotate_neck"`
	RotateLeftUpperArm   bool `json:"rotate_left_upper_arm"`
	RotateRightUpperArm  bool `json:"rotate_right_upper_arm"`
	RotateLeftLowerArm   bool `json:"rotate_left_lower_arm"`
	RotateRightLowerArm  bool `json:"rotate_right_lower_arm"`
	RotateLeftLowerArmR  bool `json:"rotate_left_lower_arm_r"`
	RotateRightLowerArmR bool `json:"rotate_right_lower_arm_r"`
	RotateLeftUpperLeg   bool `json:"rotate_left_upper_leg"`
	RotateRightUpperLeg  bool `json:"rotate_right_upper_leg"`
	RotateLeftLowerLeg   bool `json:"rotate_left_lower_leg"`
	RotateRightLowerLeg  bool `json:"rotate_right_lower_leg"`
	RotateThumbCmc       bool `json:"rotate_thumb_cmc"`
	RotateIndexCmc       bool `json:"rotate_index_cmc"`
}

// AllEnabled returns toggles with every joint tracked.
func AllEnabled() Toggles {
	return Toggles{
		RotateRoot:           true,
		RotateNeck:           true,
		RotateLeftUpperArm:   true,
		RotateRightUpperArm:  true,
		RotateLeftLowerArm:   true,
		RotateRightLowerArm:  true,
		RotateLeftLowerArmR:  true,
		RotateRightLowerArmR: true,
		RotateLeftUpperLeg:   true,
		RotateRightUpperLeg:  true,
		RotateLeftLowerLeg:   true,
		RotateRightLowerLeg:  true,
		RotateThumbCmc:       true,
		RotateIndexCmc:       true,
	}
}
